// Package cryptox seals request bodies to a recipient's Curve25519 public key
// in the format produced by libolm's PkEncryption.
//
// Scheme: an ephemeral X25519 key pair is generated per message; the shared
// secret is expanded with HKDF-SHA256 (no salt, empty info) into an AES-256
// key, an HMAC-SHA256 key and a CBC IV. The plaintext is encrypted with
// AES-256-CBC and PKCS#7 padding. All binary fields are unpadded base64.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/mediagate/internal/common"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

const (
	pkKDFLength = 2*32 + aes.BlockSize
	pkMACLength = 8
)

var (
	ErrInvalidPublicKey  = errors.New("invalid public key")
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrBadMAC            = errors.New("bad message authentication code")
)

// PkMessage is a sealed payload as exchanged on the wire.
type PkMessage struct {
	Ciphertext string `json:"ciphertext"`
	MAC        string `json:"mac"`
	Ephemeral  string `json:"ephemeral"`
}

type pkKeys struct {
	aesKey []byte
	macKey []byte
	iv     []byte
	buf    []byte
}

func (k *pkKeys) wipe() {
	common.WipeByteArray(k.buf)
}

func derivePkKeys(shared []byte) (*pkKeys, error) {
	buf := make([]byte, pkKDFLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, nil), buf); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return &pkKeys{aesKey: buf[:32], macKey: buf[32:64], iv: buf[64:], buf: buf}, nil
}

// pkMAC reproduces libolm, which computes the PkEncryption MAC over an
// empty input. Peers built on libolm or vodozemac verify it the same way.
func pkMAC(macKey []byte) []byte {
	h := hmac.New(sha256.New, macKey)
	return h.Sum(nil)[:pkMACLength]
}

func encodeBase64(b []byte) string {
	return base64.RawStdEncoding.EncodeToString(b)
}

func decodeBase64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// ValidatePublicKey reports whether key is a base64 Curve25519 public key.
func ValidatePublicKey(key string) error {
	raw, err := decodeBase64(key)
	if err != nil || len(raw) != curve25519.PointSize {
		return ErrInvalidPublicKey
	}
	return nil
}

// GeneratePkKeyPair returns a fresh Curve25519 key pair. The public key is
// base64 encoded, the private key is raw.
func GeneratePkKeyPair() (publicKey string, privateKey []byte, err error) {
	privateKey = common.GenerateRandByteArray(curve25519.ScalarSize)
	pub, err := curve25519.X25519(privateKey, curve25519.Basepoint)
	if err != nil {
		return "", nil, err
	}
	return encodeBase64(pub), privateKey, nil
}

// SealPk encrypts plaintext to recipientKey (base64 Curve25519 public key).
func SealPk(recipientKey string, plaintext []byte) (*PkMessage, error) {
	ephemeralPriv := common.GenerateRandByteArray(curve25519.ScalarSize)
	defer common.WipeByteArray(ephemeralPriv)

	return sealPk(recipientKey, ephemeralPriv, plaintext)
}

func sealPk(recipientKey string, ephemeralPriv, plaintext []byte) (*PkMessage, error) {
	recipient, err := decodeBase64(recipientKey)
	if err != nil || len(recipient) != curve25519.PointSize {
		return nil, ErrInvalidPublicKey
	}

	ephemeralPub, err := curve25519.X25519(ephemeralPriv, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}

	shared, err := curve25519.X25519(ephemeralPriv, recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	defer common.WipeByteArray(shared)

	keys, err := derivePkKeys(shared)
	if err != nil {
		return nil, err
	}
	defer keys.wipe()

	block, err := aes.NewCipher(keys.aesKey)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, keys.iv).CryptBlocks(ciphertext, padded)

	return &PkMessage{
		Ciphertext: encodeBase64(ciphertext),
		MAC:        encodeBase64(pkMAC(keys.macKey)),
		Ephemeral:  encodeBase64(ephemeralPub),
	}, nil
}

// SealJSON serializes v to JSON and seals it with SealPk.
func SealJSON(recipientKey string, v any) (*PkMessage, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return SealPk(recipientKey, plaintext)
}

// OpenPk decrypts msg with the recipient's raw private key.
func OpenPk(privateKey []byte, msg *PkMessage) ([]byte, error) {
	if len(privateKey) != curve25519.ScalarSize {
		return nil, ErrInvalidPrivateKey
	}
	if msg == nil {
		return nil, ErrInvalidCiphertext
	}

	ephemeral, err := decodeBase64(msg.Ephemeral)
	if err != nil || len(ephemeral) != curve25519.PointSize {
		return nil, ErrInvalidPublicKey
	}
	ciphertext, err := decodeBase64(msg.Ciphertext)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrInvalidCiphertext
	}
	mac, err := decodeBase64(msg.MAC)
	if err != nil {
		return nil, ErrBadMAC
	}

	shared, err := curve25519.X25519(privateKey, ephemeral)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	defer common.WipeByteArray(shared)

	keys, err := derivePkKeys(shared)
	if err != nil {
		return nil, err
	}
	defer keys.wipe()

	if !hmac.Equal(mac, pkMAC(keys.macKey)) {
		return nil, ErrBadMAC
	}

	block, err := aes.NewCipher(keys.aesKey)
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, keys.iv).CryptBlocks(plaintext, ciphertext)

	return pkcs7Unpad(plaintext, aes.BlockSize)
}

// OpenJSON decrypts msg and unmarshals the plaintext into v.
func OpenJSON(privateKey []byte, msg *PkMessage, v any) error {
	plaintext, err := OpenPk(privateKey, msg)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, v)
}

// SHA256Base64 returns the unpadded base64 SHA-256 digest of data, the
// encoding Matrix uses for attachment hashes.
func SHA256Base64(data []byte) string {
	sum := sha256.Sum256(data)
	return encodeBase64(sum[:])
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidCiphertext
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, ErrInvalidCiphertext
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidCiphertext
		}
	}
	return data[:len(data)-n], nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/mediagate/internal/client/mediaproxy"
	"github.com/dmitrijs2005/mediagate/internal/client/models"
	"github.com/dmitrijs2005/mediagate/internal/client/services"
	"github.com/dmitrijs2005/mediagate/internal/client/sink"
)

const defaultHistory = 20

var (
	ErrUsage            = errors.New("usage")
	ErrBinaryToTerminal = errors.New("refusing to write binary media to a terminal")
)

func usage(s string) error {
	return fmt.Errorf("%w: %s", ErrUsage, s)
}

// loadAttachment accepts an mxc:// URI or the path of a JSON file holding
// an event or its content. Content without media yields a nil attachment,
// which the service reports as not matrix content.
func loadAttachment(target string) (mediaproxy.Attachment, error) {
	if strings.HasPrefix(target, "mxc://") {
		return models.AttachmentFromURI(target)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return nil, err
	}
	content, err := models.ParseEventContent(data)
	if err != nil {
		return nil, err
	}
	att, err := models.AttachmentFromContent(content)
	if errors.Is(err, mediaproxy.ErrNotMatrixContent) {
		return nil, nil
	}
	return att, err
}

func printOutcome(o *services.Outcome) {
	uri := o.ContentURI
	if uri == "" {
		uri = "(no content)"
	}
	line := fmt.Sprintf("%s: %s", uri, o.State())
	if o.Verdict.Mode != "" && o.Verdict.Mode != mediaproxy.ModeNone {
		line += fmt.Sprintf(" [%s]", o.Verdict.Mode)
	}
	printlnFn(line)
	if o.Verdict.Mode == mediaproxy.ModeUnsealed {
		printlnFn("  warning: attachment keys were sent unsealed")
	}
	if o.Err != nil {
		printlnFn("  " + o.Err.Error())
	}
}

func (a *App) Key(ctx context.Context, args []string) error {
	if len(args) > 0 {
		if args[0] != "forget" {
			return usage("key [forget]")
		}
		if err := a.media.ForgetProxyKey(ctx); err != nil {
			return err
		}
		printlnFn("Pinned key forgotten")
		return nil
	}

	st, err := a.media.ProxyKey(ctx)
	if err != nil {
		return err
	}
	if !st.Available {
		printlnFn("The media proxy publishes no public key")
		if st.Pinned != "" {
			printlnFn("Pinned key:", st.Pinned)
		}
		return nil
	}
	if st.Rotated {
		printlnFn("WARNING: the media proxy key changed, previously", st.Pinned)
	}
	printlnFn("Public key:", st.Current)
	return nil
}

func (a *App) Scan(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("scan <mxc|event.json>")
	}
	att, err := loadAttachment(args[0])
	if err != nil {
		return err
	}

	o := a.media.Scan(ctx, att)
	printOutcome(o)
	return o.Err
}

func (a *App) Get(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("get <mxc|event.json> [thumb] [-]")
	}

	var thumbnail, toStdout bool
	for _, opt := range args[1:] {
		switch opt {
		case "thumb":
			thumbnail = true
		case "-":
			toStdout = true
		default:
			return usage("get <mxc|event.json> [thumb] [-]")
		}
	}

	var dst sink.Sink
	if toStdout {
		if a.isTerminal() {
			return ErrBinaryToTerminal
		}
		dst = sink.NewWriterSink(a.stdout)
	}

	att, err := loadAttachment(args[0])
	if err != nil {
		return err
	}

	o, err := a.media.Fetch(ctx, att, thumbnail, dst)
	if err != nil {
		printOutcome(o)
		return err
	}
	if !toStdout {
		printlnFn(fmt.Sprintf("Saved %d bytes (%s) to %s", len(o.Blob.Data), o.Blob.MimeType, o.Location))
	}
	return nil
}

func (a *App) URL(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 || (len(args) == 2 && args[1] != "thumb") {
		return usage("url <mxc> [thumb]")
	}
	att, err := loadAttachment(args[0])
	if err != nil {
		return err
	}

	o, err := a.media.Locate(ctx, att, len(args) == 2)
	if err != nil {
		if o != nil {
			printOutcome(o)
		}
		return err
	}
	printlnFn(o.Location)
	return nil
}

func (a *App) Batch(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("batch <events.json>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	contents, err := models.ParseEventBatch(data)
	if err != nil {
		return err
	}

	items := make([]mediaproxy.Attachment, len(contents))
	for i, c := range contents {
		// Content without media stays nil and is reported as such.
		items[i], _ = models.AttachmentFromContent(c)
	}

	outcomes, err := a.media.ScanBatch(ctx, items)
	clean := 0
	for _, o := range outcomes {
		printOutcome(o)
		if o.Verdict.Clean {
			clean++
		}
	}
	printlnFn(fmt.Sprintf("%d/%d clean", clean, len(outcomes)))
	return err
}

func (a *App) History(ctx context.Context, args []string) error {
	n := defaultHistory
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return usage("history [n]")
		}
		n = v
	}

	records, err := a.media.History(ctx, n)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		printlnFn("No records")
		return nil
	}
	for _, r := range records {
		line := fmt.Sprintf("%s  %-8s %-9s %s", r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.State, r.Mode, r.ContentURI)
		if r.Location != "" {
			line += " -> " + r.Location
		}
		if r.Error != "" {
			line += "  (" + r.Error + ")"
		}
		printlnFn(line)
	}
	return nil
}

func (a *App) Stats(ctx context.Context, _ []string) error {
	counts, err := a.media.Stats(ctx)
	if err != nil {
		return err
	}

	statesSeen := make([]string, 0, len(counts))
	for s := range counts {
		statesSeen = append(statesSeen, string(s))
	}
	sort.Strings(statesSeen)
	for _, s := range statesSeen {
		printlnFn(fmt.Sprintf("%-14s %d", s, counts[models.ScanState(s)]))
	}
	return nil
}

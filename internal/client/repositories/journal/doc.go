// Package journal persists the outcome of every scan and fetch.
//
// The journal is an audit trail. Nothing reads it back to decide whether an
// attachment needs scanning: every request is submitted to the proxy again.
//
//	repo := journal.NewSQLiteRepository(db)
//	_ = repo.Insert(ctx, &models.JournalRecord{ContentURI: uri, State: models.StateResolved})
//	last, _ := repo.List(ctx, 20)
package journal

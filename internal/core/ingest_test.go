package core_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mikey/listserv-triage/internal/adapters/store"
	"github.com/mikey/listserv-triage/internal/core"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*core.IngestService, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore(zap.NewNop())
	svc := core.NewIngestService(st, core.NewClassifier(), nil, zap.NewNop())
	return svc, st
}

func TestIngestOneDedup(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	msg := &core.Message{
		ProviderMessageID: "msg-001@lists.example.edu",
		Listserv:          "film-l",
		Subject:           "Crew call for thesis film",
		BodyText:          "We need a gaffer and a grip. Paid.",
		SentAt:            time.Now().Unix(),
	}

	first, err := svc.IngestOne(ctx, msg)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.Deduped {
		t.Fatal("first ingest reported deduped")
	}

	second, err := svc.IngestOne(ctx, msg)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !second.Deduped {
		t.Fatal("replay not reported as deduped")
	}
	if second.ID != first.ID {
		t.Errorf("replay id = %s, want %s", second.ID, first.ID)
	}

	rows, err := st.Search(ctx, core.Query{Limit: 10, IncludeDoNotCare: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("store holds %d records, want 1", len(rows))
	}
}

func TestIngestOneIdentityIgnoresProviderIDAbsence(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sentAt := time.Now().Unix()
	msg := func() *core.Message {
		return &core.Message{
			Listserv: "film-l",
			Subject:  "Does anyone have a boom pole?",
			BodyText: "Would love to borrow one this weekend.",
			SentAt:   sentAt,
		}
	}

	first, err := svc.IngestOne(ctx, msg())
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := svc.IngestOne(ctx, msg())
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !second.Deduped || second.ID != first.ID {
		t.Errorf("content-hash identity did not dedup: first=%s second=%s deduped=%v",
			first.ID, second.ID, second.Deduped)
	}
}

func TestIngestOneBumpInheritsCanonical(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	sentAt := time.Now().Add(-2 * time.Hour).Unix()
	original := &core.Message{
		ProviderMessageID: "orig@lists.example.edu",
		Listserv:          "film-l",
		Subject:           "Thesis film help",
		BodyText:          "We are looking for a gaffer and sound mixer. Paid.",
		SentAt:            sentAt,
	}
	origRes, err := svc.IngestOne(ctx, original)
	if err != nil {
		t.Fatalf("ingest original: %v", err)
	}

	origRec, err := st.Get(ctx, origRes.ID)
	if err != nil {
		t.Fatalf("get original: %v", err)
	}
	if origRec.Category != core.CategoryCrewCall {
		t.Fatalf("original category = %s, want CREW_CALL", origRec.Category)
	}

	bump := &core.Message{
		ProviderMessageID: "bump@lists.example.edu",
		Listserv:          "film-l",
		Subject:           "Re: Thesis film help",
		BodyText:          "Bumping this!",
		SentAt:            sentAt + 3600,
	}
	bumpRes, err := svc.IngestOne(ctx, bump)
	if err != nil {
		t.Fatalf("ingest bump: %v", err)
	}

	bumpRec, err := st.Get(ctx, bumpRes.ID)
	if err != nil {
		t.Fatalf("get bump: %v", err)
	}

	if !bumpRec.IsBump {
		t.Error("bump record not flagged as bump")
	}
	if !bumpRec.HasTag(core.TagBump) {
		t.Errorf("bump tags = %v, want BUMP", bumpRec.Tags)
	}
	if bumpRec.CanonicalID != origRes.ID {
		t.Errorf("canonical id = %s, want %s", bumpRec.CanonicalID, origRes.ID)
	}
	if bumpRec.Category != core.CategoryCrewCall {
		t.Errorf("bump category = %s, want inherited CREW_CALL", bumpRec.Category)
	}
	if bumpRec.Confidence <= 0.35 {
		t.Errorf("bump confidence = %.2f, expected inherited discount above floor", bumpRec.Confidence)
	}
	inherited := false
	for _, r := range bumpRec.Reasons {
		if strings.Contains(r, "bump resolved") {
			inherited = true
		}
	}
	if !inherited {
		t.Errorf("reasons = %v, expected a bump resolution note", bumpRec.Reasons)
	}
}

func TestIngestOneBumpKeepsOwnStrongClassification(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	sentAt := time.Now().Add(-time.Hour).Unix()
	original := &core.Message{
		ProviderMessageID: "orig2@lists.example.edu",
		Subject:           "Seeking gaffer for thesis shoot",
		BodyText:          "We are looking for a gaffer. Unpaid.",
		SentAt:            sentAt,
	}
	if _, err := svc.IngestOne(ctx, original); err != nil {
		t.Fatalf("ingest original: %v", err)
	}

	// the bump restates enough detail to classify on its own
	bump := &core.Message{
		ProviderMessageID: "bump2@lists.example.edu",
		Subject:           "Re: Seeking gaffer for thesis shoot",
		BodyText:          "Bumping! Still seeking a gaffer, now paid $100.",
		SentAt:            sentAt + 600,
	}
	res, err := svc.IngestOne(ctx, bump)
	if err != nil {
		t.Fatalf("ingest bump: %v", err)
	}

	rec, err := st.Get(ctx, res.ID)
	if err != nil {
		t.Fatalf("get bump: %v", err)
	}
	if rec.Category != core.CategoryCrewCall {
		t.Fatalf("category = %s, want CREW_CALL", rec.Category)
	}
	if !rec.HasTag(core.TagPaid) {
		t.Errorf("tags = %v, expected the bump's own PAID tag to survive", rec.Tags)
	}
}

func TestIngestOneGrantUpsertsOpportunity(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	msg := &core.Message{
		ProviderMessageID: "grant@lists.example.edu",
		Subject:           "Production Grant Applications Due 2099-04-30",
		BodyText:          "Funding for undergrad filmmakers. Apply by 2099-04-30.",
		SentAt:            time.Now().Unix(),
	}
	res, err := svc.IngestOne(ctx, msg)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	opp, err := st.GetOpportunity(ctx, res.ID)
	if err != nil {
		t.Fatalf("get opportunity: %v", err)
	}
	if opp.Title != msg.Subject {
		t.Errorf("title = %q, want %q", opp.Title, msg.Subject)
	}
	if opp.Status != core.GrantOpen {
		t.Errorf("status = %s, want open", opp.Status)
	}
	if opp.DeadlineAt == 0 {
		t.Error("expected a deadline on the opportunity")
	}
	if opp.Eligibility != core.EligBoth {
		t.Errorf("eligibility = %s, want both", opp.Eligibility)
	}
}

func TestIngestOneNonGrantHasNoOpportunity(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	res, err := svc.IngestOne(ctx, &core.Message{
		ProviderMessageID: "crew@lists.example.edu",
		Subject:           "Crew call",
		BodyText:          "Need a grip.",
		SentAt:            time.Now().Unix(),
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if _, err := st.GetOpportunity(ctx, res.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetOpportunity err = %v, want ErrNotFound", err)
	}
}

func TestSweepRemovesOldRecords(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	old := &core.Message{
		ProviderMessageID: "old@lists.example.edu",
		Subject:           "Crew call from last year",
		BodyText:          "Need a grip.",
		SentAt:            time.Now().Add(-200 * 24 * time.Hour).Unix(),
	}
	recent := &core.Message{
		ProviderMessageID: "recent@lists.example.edu",
		Subject:           "Crew call this month",
		BodyText:          "Need a gaffer.",
		SentAt:            time.Now().Unix(),
	}

	oldRes, err := svc.IngestOne(ctx, old)
	if err != nil {
		t.Fatalf("ingest old: %v", err)
	}
	recentRes, err := svc.IngestOne(ctx, recent)
	if err != nil {
		t.Fatalf("ingest recent: %v", err)
	}

	if err := svc.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if _, err := st.Get(ctx, oldRes.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("old record survived the sweep: err = %v", err)
	}
	if _, err := st.Get(ctx, recentRes.ID); err != nil {
		t.Errorf("recent record removed by the sweep: %v", err)
	}
}

func TestImportCSV(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	now := time.Now().Unix()
	csvData := "subject,body_text,from_email,sent_at,provider_message_id\n" +
		"Crew call,Need a gaffer,jane@x.edu," + itoa(now) + ",row-1\n" +
		"Crew call,Need a gaffer,jane@x.edu," + itoa(now) + ",row-1\n" +
		"Ancient post,old body,old@x.edu,1000,row-2\n"

	stats, err := svc.ImportCSV(ctx, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.Inserted != 1 {
		t.Errorf("inserted = %d, want 1", stats.Inserted)
	}
	if stats.Deduped != 1 {
		t.Errorf("deduped = %d, want 1", stats.Deduped)
	}
	if stats.SkippedOld != 1 {
		t.Errorf("skippedOld = %d, want 1", stats.SkippedOld)
	}
	if stats.Inserted+stats.Deduped+stats.Failed+stats.SkippedOld != stats.Total {
		t.Errorf("stats do not add up: %+v", stats)
	}
}

func TestImportCSVHeaderAliases(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	now := time.Now().Unix()
	csvData := "Subject,Body,From,Date,message_id\n" +
		"Screening tonight,Join us at 7pm,events@x.edu," + itoa(now) + ",alias-1\n"

	stats, err := svc.ImportCSV(ctx, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.Inserted != 1 {
		t.Fatalf("inserted = %d, want 1: %+v", stats.Inserted, stats)
	}

	rows, err := st.Search(ctx, core.Query{Limit: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].Subject != "Screening tonight" {
		t.Errorf("subject = %q", rows[0].Subject)
	}
	if rows[0].Listserv != "csv-import" {
		t.Errorf("listserv = %q, want csv-import default", rows[0].Listserv)
	}
	if rows[0].Source != "manual" {
		t.Errorf("source = %q, want manual default", rows[0].Source)
	}
}

func TestImportCSVEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name string
		data string
	}{
		{"no content", ""},
		{"header only", "subject,body_text\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ImportCSV(context.Background(), strings.NewReader(tt.data))
			if !errors.Is(err, core.ErrEmptyCSV) {
				t.Errorf("err = %v, want ErrEmptyCSV", err)
			}
		})
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/lay-engine/internal/models"
)

func sampleDocument(date string) *StateDocument {
	doc := NewStateDocument(date, models.DefaultEngineConfig())
	doc.Session = &models.Session{
		SessionID: "s-1",
		Date:      date,
		StartTime: time.Now().Truncate(time.Second),
		Mode:      models.ModeDryRun,
		Countries: []string{"GB", "IE"},
		Status:    models.SessionRunning,
		Summary:   models.NewSessionSummary(),
	}
	doc.BetsToday = append(doc.BetsToday, models.BetRecord{
		RecordID: "r-1",
		Instruction: models.BetInstruction{
			MarketID:    "1.100",
			SelectionID: 21,
			RunnerName:  "Alpha",
			Price:       3.1,
			Size:        decimal.RequireFromString("2.00"),
			RuleID:      models.Rule2,
		},
		Liability: decimal.RequireFromString("4.20"),
		PlacedAt:  time.Now().Truncate(time.Second),
		DryRun:    true,
		Response:  models.ExchangeResponse{Status: models.ResponseDryRun},
	})
	doc.DedupRunners = append(doc.DedupRunners, models.RunnerKey("Alpha", time.Now()))
	doc.DedupSelections = append(doc.DedupSelections, models.SelectionKey(21, "1.100"))
	return doc
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "engine_state.json")
	fs, err := NewFileStore(path)
	require.NoError(t, err)

	doc := sampleDocument("2026-08-24")
	require.NoError(t, fs.Save(doc))

	loaded, err := fs.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, doc.Date, loaded.Date)
	require.Len(t, loaded.BetsToday, 1)
	assert.Equal(t, "2", loaded.BetsToday[0].Instruction.Size.String())
	assert.Equal(t, "4.2", loaded.BetsToday[0].Liability.String())
	assert.Equal(t, doc.DedupRunners, loaded.DedupRunners)
	assert.Equal(t, doc.DedupSelections, loaded.DedupSelections)
	require.NotNil(t, loaded.Session)
	assert.Equal(t, models.SessionRunning, loaded.Session.Status)
}

func TestFileStoreLoadMissingIsFreshStart(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	doc, err := fs.Load()
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestRollForwardMarksRunningSessionCrashed(t *testing.T) {
	doc := sampleDocument("2026-08-24")

	crashed := doc.RollForward("2026-08-24")

	assert.True(t, crashed)
	assert.Nil(t, doc.Session)
	require.Len(t, doc.SessionsIndex, 1)
	assert.Equal(t, models.SessionCrashed, doc.SessionsIndex[0].Status)
	require.NotNil(t, doc.SessionsIndex[0].StopTime)
	// same-day state survives for dedup recovery
	assert.Len(t, doc.BetsToday, 1)
	assert.Len(t, doc.DedupRunners, 1)
}

func TestRollForwardDiscardsStaleDayState(t *testing.T) {
	doc := sampleDocument("2026-08-23")
	doc.APIKeys = append(doc.APIKeys, models.APIKey{KeyID: "k-1", Key: "chm_abc"})

	crashed := doc.RollForward("2026-08-24")

	assert.True(t, crashed)
	assert.Equal(t, "2026-08-24", doc.Date)
	assert.Empty(t, doc.BetsToday)
	assert.Empty(t, doc.DedupRunners)
	assert.Empty(t, doc.DedupSelections)
	assert.Empty(t, doc.Trackers)
	// sessions index and api keys survive rollover
	assert.Len(t, doc.SessionsIndex, 1)
	assert.Len(t, doc.APIKeys, 1)
}

func TestAppendEvaluationBoundsRing(t *testing.T) {
	doc := NewStateDocument("2026-08-24", models.DefaultEngineConfig())
	for i := 0; i < evaluationsRingSize+25; i++ {
		doc.AppendEvaluation(models.RuleEvaluation{MarketID: fmt.Sprintf("1.%d", i)})
	}

	assert.Len(t, doc.EvaluationsToday, evaluationsRingSize)
	assert.Equal(t, "1.25", doc.EvaluationsToday[0].MarketID)
}

// fakeObjectAPI is an in-memory S3 double
type fakeObjectAPI struct {
	data []byte
	puts int
	gets int
}

func (f *fakeObjectAPI) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gets++
	if f.data == nil {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.data))}, nil
}

func (f *fakeObjectAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts++
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.data = data
	return &s3.PutObjectOutput{}, nil
}

func TestBlobStoreWriteIfChanged(t *testing.T) {
	api := &fakeObjectAPI{}
	bs := NewBlobStore(api, "bucket", "key")
	ctx := context.Background()

	doc := sampleDocument("2026-08-24")
	require.NoError(t, bs.Save(ctx, doc))
	require.NoError(t, bs.Save(ctx, doc))
	assert.Equal(t, 1, api.puts)

	doc.Date = "2026-08-25"
	require.NoError(t, bs.Save(ctx, doc))
	assert.Equal(t, 2, api.puts)
}

func TestBlobStoreLoadMissingIsFreshStart(t *testing.T) {
	bs := NewBlobStore(&fakeObjectAPI{}, "bucket", "key")

	doc, err := bs.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestManagerPrefersNewerDurableState(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	api := &fakeObjectAPI{}
	bs := NewBlobStore(api, "bucket", "key")
	ctx := context.Background()

	hot := sampleDocument("2026-08-24")
	hot.SavedAt = time.Now().Add(-time.Hour)
	require.NoError(t, fs.Save(hot))

	durable := sampleDocument("2026-08-24")
	durable.Session.SessionID = "s-2"
	durable.SavedAt = time.Now()
	require.NoError(t, bs.Save(ctx, durable))

	m := NewManager(fs, bs, nil)
	loaded, err := m.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "s-2", loaded.Session.SessionID)
}

func TestManagerSaveStampsSavedAtAndWritesBoth(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	api := &fakeObjectAPI{}
	m := NewManager(fs, NewBlobStore(api, "bucket", "key"), nil)

	doc := sampleDocument("2026-08-24")
	before := time.Now()
	require.NoError(t, m.Save(context.Background(), doc))

	assert.False(t, doc.SavedAt.Before(before))
	assert.Equal(t, 1, api.puts)

	loaded, err := fs.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
}

func TestManagerWithoutBlobUsesHotOnly(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	m := NewManager(fs, nil, nil)

	doc, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, doc)

	require.NoError(t, m.Save(context.Background(), sampleDocument("2026-08-24")))
	doc, err = m.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, doc)
}

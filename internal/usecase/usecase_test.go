package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/pictech-gateway/internal/logging"
	"github.com/example/pictech-gateway/internal/pictech"
	"github.com/example/pictech-gateway/internal/poller"
	"github.com/example/pictech-gateway/internal/repository"
	"github.com/example/pictech-gateway/internal/storage"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

type stubRepository struct {
	saved      []*repository.TaskRecord
	saveErr    error
	findRecord *repository.TaskRecord
	findErr    error
	findCalls  int
	counts     []repository.StatusCount
	canvases   []*repository.CanvasState
	canvasErr  error

	canvasRecord *repository.CanvasState
}

func (s *stubRepository) SaveTask(ctx context.Context, record *repository.TaskRecord) error {
	copied := *record
	s.saved = append(s.saved, &copied)
	return s.saveErr
}

func (s *stubRepository) FindByRequestID(ctx context.Context, requestID string) (*repository.TaskRecord, error) {
	s.findCalls++
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.findRecord != nil {
		return s.findRecord, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubRepository) CountByStatus(ctx context.Context) ([]repository.StatusCount, error) {
	return s.counts, nil
}

func (s *stubRepository) SaveCanvasState(ctx context.Context, state *repository.CanvasState) error {
	s.canvases = append(s.canvases, state)
	return s.canvasErr
}

func (s *stubRepository) FindCanvasState(ctx context.Context, requestID string) (*repository.CanvasState, error) {
	if s.canvasRecord != nil && s.canvasRecord.RequestID == requestID {
		return s.canvasRecord, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubRepository) last() *repository.TaskRecord {
	if len(s.saved) == 0 {
		return nil
	}
	return s.saved[len(s.saved)-1]
}

type stubCache struct {
	setErrs   []error
	getErrs   []error
	getValues []string
	setKeys   []string
	getKeys   []string
	values    map[string]string
}

func (s *stubCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	s.setKeys = append(s.setKeys, key)
	if len(s.setErrs) > 0 {
		err := s.setErrs[0]
		s.setErrs = s.setErrs[1:]
		if err != nil {
			return err
		}
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if raw, ok := value.([]byte); ok {
		s.values[key] = string(raw)
	}
	return nil
}

func (s *stubCache) Get(ctx context.Context, key string) (string, error) {
	s.getKeys = append(s.getKeys, key)
	var value string
	if len(s.getValues) > 0 {
		value = s.getValues[0]
		s.getValues = s.getValues[1:]
	}
	var err error
	if len(s.getErrs) > 0 {
		err = s.getErrs[0]
		s.getErrs = s.getErrs[1:]
	}
	return value, err
}

type stubVendor struct {
	submitResp *pictech.Response
	submitErr  error
	queryResp  *pictech.Response
	queryErr   error
	inpaint    []byte
	inpaintErr error

	calls       int
	lastImage   string
	lastMask    string
	lastSource  string
	lastTarget  string
	lastQueryID string
}

func (s *stubVendor) SubmitTranslationByURL(ctx context.Context, imageURL, sourceLanguage, targetLanguage string) (*pictech.Response, error) {
	s.calls++
	s.lastImage, s.lastSource, s.lastTarget = imageURL, sourceLanguage, targetLanguage
	return s.submitResp, s.submitErr
}

func (s *stubVendor) SubmitTranslationByBase64(ctx context.Context, imageBase64, sourceLanguage, targetLanguage string) (*pictech.Response, error) {
	s.calls++
	s.lastImage, s.lastSource, s.lastTarget = imageBase64, sourceLanguage, targetLanguage
	return s.submitResp, s.submitErr
}

func (s *stubVendor) QueryTranslationResult(ctx context.Context, requestID string) (*pictech.Response, error) {
	s.calls++
	s.lastQueryID = requestID
	return s.queryResp, s.queryErr
}

func (s *stubVendor) InpaintSync(ctx context.Context, image, mask string) ([]byte, error) {
	s.calls++
	s.lastImage, s.lastMask = image, mask
	return s.inpaint, s.inpaintErr
}

type stubRemover struct {
	outcome *poller.Outcome
	err     error
	payload pictech.Payload
	dest    poller.Destination
	calls   int
}

func (s *stubRemover) Run(ctx context.Context, payload pictech.Payload, dest poller.Destination) (*poller.Outcome, error) {
	s.calls++
	s.payload = payload
	s.dest = dest
	return s.outcome, s.err
}

type transientRedisError struct{}

func (transientRedisError) Error() string   { return "redis transient" }
func (transientRedisError) Timeout() bool   { return true }
func (transientRedisError) Temporary() bool { return true }

var testNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	uc      *ImageUseCase
	repo    *stubRepository
	cache   *stubCache
	vendor  *stubVendor
	remover *stubRemover
	dir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:    &stubRepository{},
		cache:   &stubCache{},
		vendor:  &stubVendor{},
		remover: &stubRemover{},
		dir:     t.TempDir(),
	}
	f.uc = NewImageUseCase(f.vendor, f.remover, f.repo, f.cache, storage.NewLocalStore(), f.dir, zap.NewNop())
	f.uc.now = func() time.Time { return testNow }
	ids := 0
	f.uc.newID = func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}
	f.uc.cacheRetry.InitialBackoff = time.Millisecond
	f.uc.cacheRetry.MaxBackoff = 2 * time.Millisecond
	return f
}

var langs = Languages{Source: "zh", Target: "en"}

func TestSubmitTranslationByBase64StripsPrefixAndRecordsTask(t *testing.T) {
	f := newFixture(t)
	f.vendor.submitResp = &pictech.Response{Code: 200, Message: "ok", RequestID: "req-1"}

	resp, err := f.uc.SubmitTranslationByBase64(context.Background(), "data:image/png;base64,QUJD", langs)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if resp.RequestID != "req-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if f.vendor.lastImage != "QUJD" || f.vendor.lastSource != "zh" || f.vendor.lastTarget != "en" {
		t.Fatalf("unexpected vendor arguments: %+v", f.vendor)
	}
	record := f.repo.last()
	if record == nil || record.RequestID != "req-1" || record.Kind != repository.KindTranslation || record.Status != string(poller.StateSubmitted) {
		t.Fatalf("unexpected ledger record: %+v", record)
	}
	if len(f.cache.setKeys) != 1 || f.cache.setKeys[0] != "task:req-1" {
		t.Fatalf("unexpected cache keys: %v", f.cache.setKeys)
	}
}

func TestSubmitTranslationUploadEncodesBytes(t *testing.T) {
	f := newFixture(t)
	f.vendor.submitResp = &pictech.Response{Code: 200, RequestID: "req-2"}

	if _, err := f.uc.SubmitTranslationUpload(context.Background(), pngBytes, "image/png", langs); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if f.vendor.lastImage != base64.StdEncoding.EncodeToString(pngBytes) {
		t.Fatalf("unexpected image sent: %s", f.vendor.lastImage)
	}
}

func TestSubmitTranslationRecordsVendorRejection(t *testing.T) {
	f := newFixture(t)
	f.vendor.submitResp = &pictech.Response{Code: 400, Message: "bad image", RequestID: "req-3", ErrorCode: "E9"}

	resp, err := f.uc.SubmitTranslationByURL(context.Background(), "https://img.example/a.png", langs)
	if err != nil {
		t.Fatalf("vendor envelope should be returned without error, got %v", err)
	}
	if resp.Code != 400 {
		t.Fatalf("unexpected code: %d", resp.Code)
	}
	record := f.repo.last()
	if record.Status != string(poller.StateFailed) || record.ErrorCode != "E9" || record.Message != "bad image" {
		t.Fatalf("unexpected ledger record: %+v", record)
	}
}

func TestSubmitTranslationValidatesInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.SubmitTranslationByURL(context.Background(), "https://img.example/a.png", Languages{Source: "zh"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	_, err = f.uc.SubmitTranslationByBase64(context.Background(), "data:image/png;base64,", langs)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if f.vendor.calls != 0 {
		t.Fatalf("vendor should not be called, got %d calls", f.vendor.calls)
	}
}

func TestSubmitTranslationWrapsTransportError(t *testing.T) {
	f := newFixture(t)
	f.vendor.submitErr = &pictech.Error{Kind: pictech.KindTransport, Op: "pictech.execute", Err: errors.New("connection refused")}

	_, err := f.uc.SubmitTranslationByURL(context.Background(), "https://img.example/a.png", langs)
	var opErr *logging.OperationError
	if !errors.As(err, &opErr) || opErr.Operation != "usecase.translate_url" {
		t.Fatalf("expected OperationError, got %v", err)
	}
	if !pictech.IsKind(err, pictech.KindTransport) {
		t.Fatalf("expected transport kind to survive wrapping, got %v", err)
	}
	if len(f.repo.saved) != 0 {
		t.Fatalf("nothing should be recorded without a vendor response, got %d", len(f.repo.saved))
	}
}

func TestQueryTranslationResultMapsStatus(t *testing.T) {
	cases := []struct {
		resp   *pictech.Response
		status poller.State
	}{
		{&pictech.Response{Code: 202, Message: "processing"}, poller.StatePolling},
		{&pictech.Response{Code: 200, Data: map[string]any{"OutputUrl": "https://cdn.example/out.png"}}, poller.StateSucceeded},
		{&pictech.Response{Code: 500, Message: "boom", ErrorCode: "E1"}, poller.StateFailed},
	}
	for _, tc := range cases {
		f := newFixture(t)
		f.vendor.queryResp = tc.resp

		resp, err := f.uc.QueryTranslationResult(context.Background(), "req-9")
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if resp != tc.resp {
			t.Fatalf("expected envelope to pass through")
		}
		record := f.repo.last()
		if record.RequestID != "req-9" || record.Status != string(tc.status) {
			t.Fatalf("code %d: unexpected ledger record %+v", tc.resp.Code, record)
		}
		if tc.status == poller.StateSucceeded && record.OutputURL != "https://cdn.example/out.png" {
			t.Fatalf("expected output url, got %q", record.OutputURL)
		}
	}
}

func TestRemoveBackgroundDefaults(t *testing.T) {
	f := newFixture(t)
	f.remover.outcome = &poller.Outcome{RequestID: "bg-1", State: poller.StateSucceeded, Attempts: 3, SavedPath: "/tmp/out.png", Duration: 3 * time.Second}

	outcome, err := f.uc.RemoveBackground(context.Background(), RemoveBackgroundInput{ImageBase64: "data:image/png;base64,QUJD"})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if outcome.RequestID != "bg-1" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if f.remover.payload["ImageBase64"] != "QUJD" || f.remover.payload["BgColor"] != "white" {
		t.Fatalf("unexpected payload: %v", f.remover.payload)
	}
	wantDir := filepath.Join(f.dir, "background", "2024-05-01")
	if f.remover.dest.Dir != wantDir || f.remover.dest.Filename != "id-1.png" {
		t.Fatalf("unexpected destination: %+v", f.remover.dest)
	}
	record := f.repo.last()
	if record.Kind != repository.KindBackgroundRemoval || record.Status != string(poller.StateSucceeded) || record.DurationMs != 3000 || record.OutputPath != "/tmp/out.png" {
		t.Fatalf("unexpected ledger record: %+v", record)
	}
}

func TestRemoveBackgroundReadsImagePath(t *testing.T) {
	f := newFixture(t)
	f.remover.outcome = &poller.Outcome{RequestID: "bg-2", State: poller.StateSucceeded}
	path := filepath.Join(t.TempDir(), "in.png")
	if err := os.WriteFile(path, pngBytes, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := f.uc.RemoveBackground(context.Background(), RemoveBackgroundInput{
		ImagePath:      path,
		ImageURL:       "https://img.example/ignored.png",
		BgColor:        "transparent",
		OutputDir:      "/srv/out",
		OutputFilename: "result.png",
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if f.remover.payload["ImageBase64"] != base64.StdEncoding.EncodeToString(pngBytes) {
		t.Fatalf("unexpected image payload: %v", f.remover.payload["ImageBase64"])
	}
	if _, ok := f.remover.payload["ImageUrl"]; ok {
		t.Fatal("url should not be sent when an image is supplied")
	}
	if f.remover.payload["BgColor"] != "transparent" {
		t.Fatalf("unexpected colour: %v", f.remover.payload["BgColor"])
	}
	if f.remover.dest.Dir != "/srv/out" || f.remover.dest.Filename != "result.png" {
		t.Fatalf("unexpected destination: %+v", f.remover.dest)
	}
}

func TestRemoveBackgroundRecordsTimeout(t *testing.T) {
	f := newFixture(t)
	vendorErr := &pictech.Error{Kind: pictech.KindTimeout, Op: "poller.query", Err: poller.ErrAttemptsExhausted}
	f.remover.outcome = &poller.Outcome{RequestID: "bg-3", State: poller.StateTimedOut, Attempts: 15}
	f.remover.err = vendorErr

	outcome, err := f.uc.RemoveBackground(context.Background(), RemoveBackgroundInput{ImageURL: "https://img.example/a.png"})
	if err == nil {
		t.Fatal("expected error")
	}
	if outcome == nil || outcome.State != poller.StateTimedOut {
		t.Fatalf("expected timed out outcome, got %+v", outcome)
	}
	if !pictech.IsKind(err, pictech.KindTimeout) {
		t.Fatalf("expected timeout kind, got %v", err)
	}
	if record := f.repo.last(); record.Status != string(poller.StateTimedOut) || record.Attempts != 15 {
		t.Fatalf("unexpected ledger record: %+v", record)
	}
}

func TestRemoveBackgroundRequiresImage(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.RemoveBackground(context.Background(), RemoveBackgroundInput{BgColor: "white"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if f.remover.calls != 0 {
		t.Fatal("remover should not run")
	}
}

func TestInpaintStoresResult(t *testing.T) {
	f := newFixture(t)
	f.vendor.inpaint = pngBytes

	result, err := f.uc.Inpaint(context.Background(), "data:image/png;base64,SU1H", "data:image/png;base64,TUFTSw==")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if f.vendor.lastImage != "SU1H" || f.vendor.lastMask != "TUFTSw==" {
		t.Fatalf("prefixes not stripped: %q %q", f.vendor.lastImage, f.vendor.lastMask)
	}
	wantPath := filepath.Join(f.dir, "iopaint", "2024-05-01", "id-1.png")
	if result.Path != wantPath || result.FileName != "id-1.png" {
		t.Fatalf("unexpected result: %+v", result)
	}
	stored, err := os.ReadFile(wantPath)
	if err != nil || string(stored) != string(pngBytes) {
		t.Fatalf("result not stored: %v", err)
	}
	if result.ImageBase64 != base64.StdEncoding.EncodeToString(pngBytes) {
		t.Fatalf("unexpected base64 result")
	}
	if record := f.repo.last(); record.Kind != repository.KindInpaint || record.Status != string(poller.StateSucceeded) {
		t.Fatalf("unexpected ledger record: %+v", record)
	}
}

func TestInpaintRecordsEmptyBodyFailure(t *testing.T) {
	f := newFixture(t)
	f.vendor.inpaintErr = pictech.MalformedError("pictech.inpaint_sync", "/inpaint_image_sync", "vendor returned an empty image body")

	_, err := f.uc.Inpaint(context.Background(), "SU1H", "TUFTSw==")
	if !pictech.IsKind(err, pictech.KindMalformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
	if record := f.repo.last(); record.Status != string(poller.StateFailed) {
		t.Fatalf("unexpected ledger record: %+v", record)
	}
	if _, statErr := os.Stat(filepath.Join(f.dir, "iopaint")); !os.IsNotExist(statErr) {
		t.Fatalf("nothing should be written, stat returned %v", statErr)
	}
}

func TestInpaintSurvivesLedgerFailure(t *testing.T) {
	f := newFixture(t)
	f.vendor.inpaint = pngBytes
	f.repo.saveErr = errors.New("db down")

	if _, err := f.uc.Inpaint(context.Background(), "SU1H", "TUFTSw=="); err != nil {
		t.Fatalf("ledger failure should not fail the request, got %v", err)
	}
}

type failingStore struct{}

func (failingStore) Save(ctx context.Context, dir, filename string, data []byte) (string, error) {
	return "", errors.New("disk full")
}

func TestInpaintRecordsStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.vendor.inpaint = pngBytes
	f.uc.store = failingStore{}

	_, err := f.uc.Inpaint(context.Background(), "SU1H", "TUFTSw==")
	if err == nil {
		t.Fatal("expected store failure")
	}
	var opErr *logging.OperationError
	if !errors.As(err, &opErr) || opErr.RequestID != "id-1" {
		t.Fatalf("expected OperationError for id-1, got %v", err)
	}
	record := f.repo.last()
	if record == nil || record.RequestID != "id-1" || record.Kind != repository.KindInpaint || record.Status != string(poller.StateFailed) {
		t.Fatalf("unexpected ledger record: %+v", record)
	}
	if record.OutputPath != "" {
		t.Fatalf("failed record should carry no output path: %+v", record)
	}
}

func TestGetCanvasState(t *testing.T) {
	f := newFixture(t)
	f.repo.canvasRecord = &repository.CanvasState{RequestID: "req-1", SourceURL: "https://cdn.example/src.png", TemplateJSON: `{"objects":[]}`}

	state, err := f.uc.GetCanvasState(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if state.RequestID != "req-1" || state.SourceURL != "https://cdn.example/src.png" || state.TemplateJSON != `{"objects":[]}` {
		t.Fatalf("unexpected state: %+v", state)
	}

	f.repo.canvasRecord = nil
	if _, err := f.uc.GetCanvasState(context.Background(), "missing"); !errors.Is(err, ErrCanvasNotFound) {
		t.Fatalf("expected ErrCanvasNotFound, got %v", err)
	}
	if _, err := f.uc.GetCanvasState(context.Background(), " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSaveExportedImage(t *testing.T) {
	f := newFixture(t)

	path, err := f.uc.SaveExportedImage(context.Background(), "data:image/png;base64,"+base64.StdEncoding.EncodeToString(pngBytes), "")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if path != "/2024-05-01/id-1.png" {
		t.Fatalf("unexpected path: %s", path)
	}
	if _, err := os.Stat(filepath.Join(f.dir, "export", "2024-05-01", "id-1.png")); err != nil {
		t.Fatalf("expected exported file: %v", err)
	}

	path, err = f.uc.SaveExportedImage(context.Background(), base64.StdEncoding.EncodeToString(pngBytes), "poster.webp")
	if err != nil || path != "/2024-05-01/id-2.webp" {
		t.Fatalf("expected extension from filename, got %q (%v)", path, err)
	}

	for _, name := range []string{"page.html", "icon.svg", "run.js"} {
		path, err = f.uc.SaveExportedImage(context.Background(), base64.StdEncoding.EncodeToString(pngBytes), name)
		if err != nil || filepath.Ext(path) != ".png" {
			t.Fatalf("%s: expected detected extension, got %q (%v)", name, path, err)
		}
	}

	if _, err := f.uc.SaveExportedImage(context.Background(), "not base64!", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSaveInpaintedImage(t *testing.T) {
	f := newFixture(t)

	url, err := f.uc.SaveInpaintedImage(context.Background(), base64.StdEncoding.EncodeToString(pngBytes))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if url != "/iopaint_front/2024-05-01/id-1.png" {
		t.Fatalf("unexpected url: %s", url)
	}
	if _, err := os.Stat(filepath.Join(f.dir, "iopaint_front", "2024-05-01", "id-1.png")); err != nil {
		t.Fatalf("expected stored file: %v", err)
	}
}

func TestSaveCanvasState(t *testing.T) {
	f := newFixture(t)

	id, err := f.uc.SaveCanvasState(context.Background(), CanvasInput{RequestID: "req-1", TemplateJSON: `{"objects":[]}`})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if id != "id-1" {
		t.Fatalf("unexpected id: %s", id)
	}
	if len(f.repo.canvases) != 1 || f.repo.canvases[0].TemplateJSON != `{"objects":[]}` {
		t.Fatalf("unexpected canvas state: %+v", f.repo.canvases)
	}

	if _, err := f.uc.SaveCanvasState(context.Background(), CanvasInput{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRecordTaskRetriesTransientCacheFailure(t *testing.T) {
	f := newFixture(t)
	f.cache.setErrs = []error{transientRedisError{}}
	f.vendor.submitResp = &pictech.Response{Code: 200, RequestID: "req-1"}

	if _, err := f.uc.SubmitTranslationByURL(context.Background(), "https://img.example/a.png", langs); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(f.cache.setKeys) != 2 || f.cache.setKeys[0] != f.cache.setKeys[1] {
		t.Fatalf("expected one retry on the same key, got %v", f.cache.setKeys)
	}
}

func TestGetTaskPrefersCache(t *testing.T) {
	f := newFixture(t)
	cached, _ := json.Marshal(TaskStatus{RequestID: "req-1", Kind: repository.KindTranslation, Status: "polling"})
	f.cache.getValues = []string{string(cached)}

	status, err := f.uc.GetTask(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if status.Status != "polling" {
		t.Fatalf("unexpected status: %+v", status)
	}
	if f.repo.findCalls != 0 {
		t.Fatalf("repository should not be queried, got %d calls", f.repo.findCalls)
	}
	if f.cache.getKeys[0] != "task:req-1" {
		t.Fatalf("unexpected cache key: %s", f.cache.getKeys[0])
	}
}

func TestGetTaskFallsBackToRepositoryWhenCacheMiss(t *testing.T) {
	f := newFixture(t)
	f.cache.getErrs = []error{redis.Nil}
	f.repo.findRecord = &repository.TaskRecord{RequestID: "req-1", Kind: repository.KindInpaint, Status: "succeeded"}

	status, err := f.uc.GetTask(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if status.Kind != repository.KindInpaint || status.Status != "succeeded" {
		t.Fatalf("unexpected status: %+v", status)
	}
	if f.repo.findCalls != 1 {
		t.Fatalf("expected repository to be queried once, got %d", f.repo.findCalls)
	}
	if len(f.cache.getKeys) != 1 {
		t.Fatalf("a cache miss should not be retried, got %d gets", len(f.cache.getKeys))
	}
}

func TestGetTaskNotFound(t *testing.T) {
	f := newFixture(t)
	f.cache.getErrs = []error{redis.Nil}

	_, err := f.uc.GetTask(context.Background(), "missing")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestGetTaskSummary(t *testing.T) {
	f := newFixture(t)
	f.repo.counts = []repository.StatusCount{
		{Kind: repository.KindTranslation, Status: "succeeded", Count: 3},
		{Kind: repository.KindTranslation, Status: "failed", Count: 1},
		{Kind: repository.KindInpaint, Status: "succeeded", Count: 4},
	}

	summary, err := f.uc.GetTaskSummary(context.Background())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if summary.TotalTasks != 8 || summary.SucceededTasks != 7 {
		t.Fatalf("unexpected totals: %+v", summary)
	}
	if summary.SuccessRate != 7.0/8.0 {
		t.Fatalf("unexpected success rate: %f", summary.SuccessRate)
	}
	translation := summary.Kinds[repository.KindTranslation]
	if translation == nil || translation.Total != 4 || translation.ByStatus["failed"] != 1 {
		t.Fatalf("unexpected translation summary: %+v", translation)
	}
}

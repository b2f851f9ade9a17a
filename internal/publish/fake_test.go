package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andresuchdata/zenodo-publish/internal/zenodo"
)

var errTransport = errors.New("dial tcp: connection refused")

// fakeAPI records every call and answers from canned values.
type fakeAPI struct {
	calls []string

	records   []zenodo.RecordSummary
	searchErr error

	// newVersionErrs is consumed one per NewVersion call.
	newVersionErrs []error
	draftID        string

	files     []zenodo.DepositionFile
	getErr    error
	createErr error

	metadataErr error
	uploadErr   error
	publishErr  error

	uploaded     string
	uploadedName string
	metadataBody any
}

func (f *fakeAPI) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeAPI) CheckToken(context.Context) (int, error) {
	f.record("GET depositions")
	return 200, nil
}

func (f *fakeAPI) SearchRecords(_ context.Context, q zenodo.RecordQuery) ([]zenodo.RecordSummary, error) {
	f.record("GET records community=%s size=%d", q.Community, q.Size)
	return f.records, f.searchErr
}

func (f *fakeAPI) CreateDeposition(context.Context) (*zenodo.Deposition, error) {
	f.record("POST depositions")
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &zenodo.Deposition{ID: "new-1", Links: zenodo.DepositionLinks{Bucket: "https://x/files/b1"}}, nil
}

func (f *fakeAPI) NewVersion(_ context.Context, id string) (*zenodo.Deposition, error) {
	f.record("POST %s/newversion", id)
	if len(f.newVersionErrs) > 0 {
		err := f.newVersionErrs[0]
		f.newVersionErrs = f.newVersionErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	draft := f.draftID
	if draft == "" {
		draft = "draft-1"
	}
	return &zenodo.Deposition{ID: zenodo.ID(id), Links: zenodo.DepositionLinks{
		LatestDraft: "https://x/api/deposit/depositions/" + draft,
		Bucket:      "https://x/files/b2",
	}}, nil
}

func (f *fakeAPI) GetDeposition(_ context.Context, id string) (*zenodo.Deposition, error) {
	f.record("GET %s", id)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &zenodo.Deposition{ID: zenodo.ID(id), Files: f.files}, nil
}

func (f *fakeAPI) DeleteFile(_ context.Context, id, fileID string) error {
	f.record("DELETE %s/files/%s", id, fileID)
	return nil
}

func (f *fakeAPI) UpdateMetadata(_ context.Context, id string, body any) (*zenodo.Deposition, error) {
	f.record("PUT %s", id)
	f.metadataBody = body
	return &zenodo.Deposition{ID: zenodo.ID(id)}, f.metadataErr
}

func (f *fakeAPI) UploadFile(_ context.Context, id, name string, r io.Reader) (*zenodo.DepositionFile, error) {
	f.record("POST %s/files", id)
	data, _ := io.ReadAll(r)
	f.uploaded = string(data)
	f.uploadedName = name
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &zenodo.DepositionFile{ID: "file-1", Filename: name, Filesize: int64(len(data))}, nil
}

func (f *fakeAPI) Publish(_ context.Context, id string) (*zenodo.Deposition, error) {
	f.record("POST %s/publish", id)
	return &zenodo.Deposition{ID: zenodo.ID(id), Submitted: f.publishErr == nil}, f.publishErr
}

// mutating reports the calls that change remote state.
func (f *fakeAPI) mutating() []string {
	var out []string
	for _, c := range f.calls {
		if !strings.HasPrefix(c, "GET ") {
			out = append(out, c)
		}
	}
	return out
}

type memPayload struct {
	name    string
	content string
	opened  int
	closed  int
}

func (m *memPayload) Name() string { return m.name }

func (m *memPayload) Open() (io.ReadCloser, error) {
	m.opened++
	return &trackedReader{Reader: strings.NewReader(m.content), onClose: func() { m.closed++ }}, nil
}

type trackedReader struct {
	io.Reader
	onClose func()
}

func (t *trackedReader) Close() error {
	t.onClose()
	return nil
}

func filesPresentErr() error {
	return &zenodo.APIError{
		Method:     "POST",
		Path:       "/deposit/depositions/123/actions/newversion",
		StatusCode: 400,
		Message:    "Please remove all files first.",
		Body:       []byte(`{"status": 400, "message": "Please remove all files first."}`),
	}
}

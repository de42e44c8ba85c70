package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qrmark/qrmark-api/internal/models"
	appErrors "github.com/qrmark/qrmark-api/pkg/errors"
	"github.com/qrmark/qrmark-api/pkg/jobs"
	"github.com/qrmark/qrmark-api/pkg/qr"
)

type mockCodeRepo struct {
	replaced *models.SessionCode
	byID     *models.SessionCode
	codes    []models.SessionCode
}

func (m *mockCodeRepo) Replace(ctx context.Context, code *models.SessionCode) (*models.SessionCode, error) {
	m.replaced = code
	return code, nil
}

func (m *mockCodeRepo) FindBySession(ctx context.Context, className, year, subject string, date time.Time) (*models.SessionCode, error) {
	if m.replaced == nil {
		return nil, sql.ErrNoRows
	}
	return m.replaced, nil
}

func (m *mockCodeRepo) FindByID(ctx context.Context, id string) (*models.SessionCode, error) {
	if m.byID == nil {
		return nil, sql.ErrNoRows
	}
	return m.byID, nil
}

func (m *mockCodeRepo) List(ctx context.Context, limit int) ([]models.SessionCode, error) {
	return m.codes, nil
}

type mockQueue struct {
	jobs []jobs.Job
	err  error
}

func (m *mockQueue) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

func newCodeFixture() (*SessionCodeService, *mockCodeRepo, *mockQueue) {
	repo := &mockCodeRepo{}
	queue := &mockQueue{}
	renderer := qr.NewRenderer("http://localhost:8080/scan", 128)
	svc := NewSessionCodeService(repo, queue, renderer, nil, validator.New(), zap.NewNop(), 6)
	return svc, repo, queue
}

func TestSessionCodeIssue(t *testing.T) {
	svc, repo, queue := newCodeFixture()

	code, err := svc.Issue(context.Background(), IssueCodeRequest{
		ClassName: "10A", Year: "2026", Subject: "Math",
		AnchorLat: "1.3521", AnchorLng: "103.8198",
	})
	require.NoError(t, err)

	assert.Len(t, code.Code, 6)
	assert.Regexp(t, "^[A-Z0-9]{6}$", code.Code)
	require.NotNil(t, code.AnchorLat)
	assert.InDelta(t, 1.3521, *code.AnchorLat, 1e-9)
	assert.Equal(t, repo.replaced, code)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeRenderQR, queue.jobs[0].Type)
	payload, ok := queue.jobs[0].Payload.(RenderQRPayload)
	require.True(t, ok)
	assert.Equal(t, code.Code, payload.Code)
}

func TestSessionCodeIssueWithoutAnchor(t *testing.T) {
	svc, _, _ := newCodeFixture()

	code, err := svc.Issue(context.Background(), IssueCodeRequest{ClassName: "10A", Year: "2026", Subject: "Math"})
	require.NoError(t, err)
	assert.Nil(t, code.AnchorLat)
	assert.Nil(t, code.AnchorLng)
}

func TestSessionCodeIssueMalformedAnchor(t *testing.T) {
	svc, _, _ := newCodeFixture()

	_, err := svc.Issue(context.Background(), IssueCodeRequest{
		ClassName: "10A", Year: "2026", Subject: "Math",
		AnchorLat: "north", AnchorLng: "103.8198",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSessionCodeIssueRotatesSameDay(t *testing.T) {
	svc, repo, _ := newCodeFixture()

	first, err := svc.Issue(context.Background(), IssueCodeRequest{ClassName: "10A", Year: "2026", Subject: "Math"})
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), IssueCodeRequest{ClassName: "10A", Year: "2026", Subject: "Math"})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, second, repo.replaced)
}

func TestSessionCodeLookupMissing(t *testing.T) {
	svc, _, _ := newCodeFixture()

	_, err := svc.Lookup(context.Background(), "10A", "2026", "Math")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSessionCodeQRImageRendersInline(t *testing.T) {
	svc, repo, _ := newCodeFixture()
	repo.byID = &models.SessionCode{ID: "c1", ClassName: "10A", Year: "2026", Subject: "Math", Code: "ABC123"}

	data, err := svc.QRImage(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data[:4])
}

func TestQRRenderHandler(t *testing.T) {
	h := NewQRRenderHandler(qr.NewRenderer("http://localhost/scan", 128), nil)

	err := h(context.Background(), jobs.Job{Type: JobTypeRenderQR, Payload: RenderQRPayload{
		ClassName: "10A", Year: "2026", Subject: "Math", Code: "ABC123",
	}})
	require.NoError(t, err)

	err = h(context.Background(), jobs.Job{Type: JobTypeRenderQR, Payload: "bogus"})
	require.Error(t, err)
}

func TestRandomCodeAlphabet(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code, err := RandomCode(8)
		require.NoError(t, err)
		assert.Regexp(t, "^[A-Z0-9]{8}$", code)
		seen[code] = true
	}
	// 20 draws from a 36^8 space should never collide.
	assert.Len(t, seen, 20)
}

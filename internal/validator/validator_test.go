package validator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passChecker() ContentChecker {
	return CheckerFunc(func(ctx context.Context, file FileMeta) error { return nil })
}

func newTestValidator(checker ContentChecker) *Validator {
	return New(Config{}, checker, zerolog.Nop())
}

func TestValidate_RejectsUnknownFormatRegardlessOfSize(t *testing.T) {
	v := newTestValidator(passChecker())

	for _, mt := range []string{"text/plain", "application/zip", "image/gif", "", "application/msword"} {
		for _, size := range []int64{0, 10, MaxFileSize, MaxFileSize + 1, 100 * MaxFileSize} {
			err := v.Validate(context.Background(), FileMeta{Name: "doc", MimeType: mt, Size: size})
			require.ErrorIs(t, err, models.ErrInvalidFormat, "mime=%q size=%d", mt, size)
		}
	}
}

func TestValidate_RejectsOversizedFileWithValidFormat(t *testing.T) {
	v := newTestValidator(passChecker())

	for _, mt := range []string{"application/pdf", "image/jpeg", "image/png"} {
		err := v.Validate(context.Background(), FileMeta{Name: "id.png", MimeType: mt, Size: 6_291_456})
		require.ErrorIs(t, err, models.ErrFileTooLarge)
		assert.NotErrorIs(t, err, models.ErrInvalidFormat)
	}
}

func TestValidate_SizeBoundary(t *testing.T) {
	v := newTestValidator(passChecker())

	require.NoError(t, v.Validate(context.Background(), FileMeta{Name: "a.pdf", MimeType: "application/pdf", Size: MaxFileSize}))
	require.ErrorIs(t, v.Validate(context.Background(), FileMeta{Name: "a.pdf", MimeType: "application/pdf", Size: MaxFileSize + 1}), models.ErrFileTooLarge)
}

func TestValidate_FileTooLargeDetailNamesConfiguredLimit(t *testing.T) {
	tests := []struct {
		name    string
		maxSize int64
		want    string
	}{
		{name: "default", maxSize: 0, want: "file is too large, max size is 5MB"},
		{name: "kilobytes", maxSize: 1024, want: "file is too large, max size is 1KB"},
		{name: "fractional", maxSize: 1536 * 1024, want: "file is too large, max size is 1.5MB"},
		{name: "bytes", maxSize: 100, want: "file is too large, max size is 100 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(Config{MaxFileSize: tt.maxSize}, passChecker(), zerolog.Nop())

			err := v.Validate(context.Background(), FileMeta{Name: "a.pdf", MimeType: "application/pdf", Size: 10 * MaxFileSize})
			var vErr *models.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, models.ReasonFileTooLarge, vErr.Reason)
			assert.Equal(t, tt.want, vErr.Detail)
		})
	}
}

func TestValidate_NormalizesMimeType(t *testing.T) {
	v := newTestValidator(passChecker())

	for _, mt := range []string{"IMAGE/PNG", "image/jpg", "application/pdf; charset=binary", " image/jpeg "} {
		require.NoError(t, v.Validate(context.Background(), FileMeta{Name: "x", MimeType: mt, Size: 1}), mt)
	}
}

func TestValidate_ContentCheckFailure(t *testing.T) {
	v := newTestValidator(NewHeuristicChecker(0))

	err := v.Validate(context.Background(), FileMeta{Name: "transcript_FAIL.pdf", MimeType: "application/pdf", Size: 10})
	require.ErrorIs(t, err, models.ErrContentValidationFailed)

	var vErr *models.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Detail, "student ID")

	require.NoError(t, v.Validate(context.Background(), FileMeta{Name: "transcript.pdf", MimeType: "application/pdf", Size: 10}))
}

func TestValidate_ContentCheckerGenericErrorBecomesValidationError(t *testing.T) {
	v := newTestValidator(CheckerFunc(func(ctx context.Context, file FileMeta) error {
		return errors.New("ocr backend said no")
	}))

	err := v.Validate(context.Background(), FileMeta{Name: "a.pdf", MimeType: "application/pdf", Size: 1})
	require.ErrorIs(t, err, models.ErrContentValidationFailed)
}

func TestValidate_ContentCheckNotReachedOnEarlierFailure(t *testing.T) {
	called := false
	v := newTestValidator(CheckerFunc(func(ctx context.Context, file FileMeta) error {
		called = true
		return nil
	}))

	_ = v.Validate(context.Background(), FileMeta{Name: "a.exe", MimeType: "application/octet-stream", Size: 1})
	_ = v.Validate(context.Background(), FileMeta{Name: "a.pdf", MimeType: "application/pdf", Size: MaxFileSize * 2})
	assert.False(t, called)
}

func TestHeuristicChecker_HonoursCancellation(t *testing.T) {
	c := NewHeuristicChecker(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Check(ctx, FileMeta{Name: "a.pdf"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestValidateLatest_NewerCallSupersedesOlder(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})

	v := newTestValidator(CheckerFunc(func(ctx context.Context, file FileMeta) error {
		started <- struct{}{}
		if file.Name == "first.pdf" {
			<-ctx.Done()
			return ctx.Err()
		}
		<-release
		return nil
	}))

	firstErr := make(chan error, 1)
	go func() {
		firstErr <- v.ValidateLatest(context.Background(), "s1/srf_form", FileMeta{Name: "first.pdf", MimeType: "application/pdf", Size: 1})
	}()
	<-started

	secondErr := make(chan error, 1)
	go func() {
		secondErr <- v.ValidateLatest(context.Background(), "s1/srf_form", FileMeta{Name: "second.pdf", MimeType: "application/pdf", Size: 1})
	}()

	require.ErrorIs(t, <-firstErr, models.ErrSuperseded)

	<-started
	close(release)
	require.NoError(t, <-secondErr)
	v.inflight.mu.Lock()
	assert.Empty(t, v.inflight.slots)
	v.inflight.mu.Unlock()
}

func TestValidateLatest_IndependentKeys(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)

	v := newTestValidator(CheckerFunc(func(ctx context.Context, file FileMeta) error {
		started <- struct{}{}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}))

	errs := make(chan error, 2)
	for _, key := range []string{"s1/srf_form", "s2/srf_form"} {
		go func(key string) {
			errs <- v.ValidateLatest(context.Background(), key, FileMeta{Name: "a.pdf", MimeType: "application/pdf", Size: 1})
		}(key)
	}
	<-started
	<-started
	close(release)

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
}

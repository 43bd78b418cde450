// Package validator decides whether an uploaded file may enter the record
// store. Format and size are checked synchronously; the content check is a
// pluggable, cancellable step.
package validator

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/rs/zerolog"
)

// MaxFileSize is 5 MiB.
const MaxFileSize int64 = 5 * 1024 * 1024

// formatSize renders a byte limit the way upload forms state it: 5MB, 512KB.
func formatSize(n int64) string {
	units := []struct {
		suffix string
		size   int64
	}{{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}}

	for _, u := range units {
		if n >= u.size {
			value := strconv.FormatFloat(float64(n)/float64(u.size), 'f', 1, 64)
			return strings.TrimSuffix(value, ".0") + u.suffix
		}
	}
	return strconv.FormatInt(n, 10) + " bytes"
}

var DefaultAllowedTypes = []string{"application/pdf", "image/jpeg", "image/png"}

// mimeAliases maps non-canonical types browsers still send onto the canonical one.
var mimeAliases = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
}

type FileMeta struct {
	Name     string
	MimeType string
	Size     int64
}

type ContentChecker interface {
	Check(ctx context.Context, file FileMeta) error
}

type Config struct {
	MaxFileSize  int64
	AllowedTypes []string
}

type Validator struct {
	maxSize  int64
	allowed  map[string]struct{}
	checker  ContentChecker
	inflight *Inflight
	logger   zerolog.Logger
}

func New(cfg Config, checker ContentChecker, logger zerolog.Logger) *Validator {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = MaxFileSize
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = DefaultAllowedTypes
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[NormalizeMimeType(t)] = struct{}{}
	}

	return &Validator{
		maxSize:  cfg.MaxFileSize,
		allowed:  allowed,
		checker:  checker,
		inflight: NewInflight(),
		logger:   logger,
	}
}

// Validate applies the rules in order; the first failure wins.
func (v *Validator) Validate(ctx context.Context, file FileMeta) error {
	if _, ok := v.allowed[NormalizeMimeType(file.MimeType)]; !ok {
		return models.NewValidationError(models.ReasonInvalidFormat,
			"invalid file format, please upload PDF or JPG/PNG")
	}

	if file.Size > v.maxSize {
		return models.NewValidationError(models.ReasonFileTooLarge,
			fmt.Sprintf("file is too large, max size is %s", formatSize(v.maxSize)))
	}

	if v.checker == nil {
		return nil
	}

	if err := v.checker.Check(ctx, file); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var vErr *models.ValidationError
		if errors.As(err, &vErr) {
			return vErr
		}

		v.logger.Warn().Err(err).Str("file_name", file.Name).Msg("Content check failed")
		return models.NewValidationError(models.ReasonContentValidationFailed, err.Error())
	}

	return nil
}

// ValidateLatest runs Validate for an upload slot. A newer call for the same
// key cancels this one, which then fails with models.ErrSuperseded.
func (v *Validator) ValidateLatest(ctx context.Context, key string, file FileMeta) error {
	return v.inflight.Do(ctx, key, func(ctx context.Context) error {
		return v.Validate(ctx, file)
	})
}

// NormalizeMimeType lowercases t, drops parameters and resolves aliases.
func NormalizeMimeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		t = mt
	}
	if canonical, ok := mimeAliases[t]; ok {
		return canonical
	}
	return t
}

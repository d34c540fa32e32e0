package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportEmptyRegistry(t *testing.T) {
	r := NewRegistry()
	report := r.Report(context.Background())
	assert.Equal(t, StatusOK, report.Status)
	assert.Empty(t, report.Checks)
}

func TestReportAllPassing(t *testing.T) {
	r := NewRegistry()
	r.Register("database", CheckerFunc(func(ctx context.Context) error { return nil }))
	r.Register("cache", CheckerFunc(func(ctx context.Context) error { return nil }))

	report := r.Report(context.Background())
	assert.Equal(t, StatusOK, report.Status)
	assert.Len(t, report.Checks, 2)
	assert.Equal(t, StatusOK, report.Checks["database"].Status)
}

func TestReportOneFailing(t *testing.T) {
	r := NewRegistry()
	r.Register("database", CheckerFunc(func(ctx context.Context) error { return nil }))
	r.Register("cache", CheckerFunc(func(ctx context.Context) error {
		return errors.New("connection refused")
	}))

	report := r.Report(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, StatusOK, report.Checks["database"].Status)
	assert.Equal(t, StatusDown, report.Checks["cache"].Status)
	assert.Contains(t, report.Checks["cache"].Message, "connection refused")
}

package blobstore

import (
	"context"
	"io"
	"time"

	"github.com/rangelog/rangelog/internal/observability/metrics"
)

// instrumentedStore wraps a Store and records operation counts, latencies
// and transferred object sizes. Applied by New when metrics are configured.
type instrumentedStore struct {
	inner  Store
	m      *metrics.BlobStoreMetrics
	driver string
}

func withMetrics(inner Store, m *metrics.BlobStoreMetrics) Store {
	return &instrumentedStore{inner: inner, m: m, driver: string(inner.Driver())}
}

func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	s.m.RecordOperation(s.driver, op, status)
	s.m.RecordOperationDuration(s.driver, op, time.Since(start).Seconds())
}

func (s *instrumentedStore) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error) {
	start := time.Now()
	info, err := s.inner.Put(ctx, key, r, opts)
	s.observe(metrics.OpPut, start, err)
	if err == nil {
		s.m.RecordObjectSize(s.driver, metrics.OpPut, info.Size)
	}
	return info, err
}

func (s *instrumentedStore) Get(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	start := time.Now()
	info, r, err := s.inner.Get(ctx, key)
	s.observe(metrics.OpGet, start, err)
	if err == nil {
		s.m.RecordObjectSize(s.driver, metrics.OpGet, info.Size)
	}
	return info, r, err
}

func (s *instrumentedStore) Head(ctx context.Context, key string) (Info, error) {
	start := time.Now()
	info, err := s.inner.Head(ctx, key)
	s.observe(metrics.OpHead, start, err)
	return info, err
}

func (s *instrumentedStore) Copy(ctx context.Context, srcKey, dstKey string) (Info, error) {
	start := time.Now()
	info, err := s.inner.Copy(ctx, srcKey, dstKey)
	s.observe(metrics.OpCopy, start, err)
	if err == nil {
		s.m.RecordObjectSize(s.driver, metrics.OpCopy, info.Size)
	}
	return info, err
}

func (s *instrumentedStore) Delete(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	existed, err := s.inner.Delete(ctx, key)
	s.observe(metrics.OpDelete, start, err)
	return existed, err
}

func (s *instrumentedStore) List(ctx context.Context, prefix string) ([]Info, error) {
	start := time.Now()
	infos, err := s.inner.List(ctx, prefix)
	s.observe(metrics.OpList, start, err)
	return infos, err
}

func (s *instrumentedStore) PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error) {
	start := time.Now()
	u, err := s.inner.PresignURL(ctx, key, opts)
	s.observe(metrics.OpPresign, start, err)
	return u, err
}

func (s *instrumentedStore) Driver() Driver { return s.inner.Driver() }

package redis

import (
	"context"

	"github.com/kailas-cloud/pdfqa/internal/db"
)

// Save triggers BGSAVE. A snapshot already in progress counts as success.
func (s *Store) Save(ctx context.Context) error {
	cmd := s.b().Bgsave().Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "already in progress") {
			return nil
		}
		return &db.Error{Op: db.OpSave, Err: err}
	}
	return nil
}

package utils

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/hlyanhtet/buildbooks_backend/config"
)

var mutex sync.Mutex

// get type name of generic type
func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

/* Redis */

// NextDrawNumber returns the next draw number for a job: monotonically
// increasing, unique per job, assigned at creation.
//
// The counter lives in redis (key: "<jobId>-draw_seq"); when redis has no
// counter yet (fresh instance, flushed cache) it is seeded from the DB max so
// numbers never regress. The process-local mutex keeps the seed race out of a
// single instance; the unique (job_id, draw_number) index is the backstop
// across instances.
func NextDrawNumber(ctx context.Context, jobId int) (int64, error) {
	mutex.Lock()
	defer mutex.Unlock()

	cacheKey := fmt.Sprintf("%d-draw_seq", jobId)
	var seqNo int64
	var err error
	db := config.GetDB()

	for {
		seqNo, err = config.GetRedisCounter(ctx, cacheKey)
		if err != nil {
			return 0, err
		}
		// if not found in redis, get from db
		if seqNo <= 1 {
			// get max draw number from db
			var dbSeq *int64
			if err := db.WithContext(ctx).Table("draw_requests").
				Select("max(draw_number)").
				Where("job_id = ?", jobId).
				Scan(&dbSeq).Error; err != nil {
				return 0, err
			}
			// in case db has no draw requests for the job
			if dbSeq == nil {
				if seqNo < 1 {
					seqNo = 1
				}
				return seqNo, nil
			}
			if *dbSeq >= seqNo {
				seqNo = *dbSeq + 1
				if err := config.SetRedisCounter(ctx, cacheKey, seqNo); err != nil {
					return 0, err
				}
			}
			return seqNo, nil
		}
		return seqNo, nil
	}
}

// SeedDrawNumber advances a job's draw sequence to n after an explicitly
// chosen draw number is honored, so later auto-assigned numbers start
// above it instead of colliding with it.
func SeedDrawNumber(ctx context.Context, jobId int, n int64) error {
	mutex.Lock()
	defer mutex.Unlock()

	cacheKey := fmt.Sprintf("%d-draw_seq", jobId)
	return config.SetRedisCounter(ctx, cacheKey, n)
}

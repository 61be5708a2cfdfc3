package data

import (
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

func testLogger() log.Logger {
	return log.NewStdLogger(io.Discard)
}

// newMockData 构建跑在 sqlmock 上的 Data
// Redis 指向一个必然拒绝连接的地址：缓存读写降级为未命中/告警，不影响被测路径
func newMockData(t *testing.T) (*Data, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	dialector := mysql.New(mysql.Config{
		Conn:                      mockDB,
		SkipInitializeWithVersion: true,
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })

	return &Data{db: db, rdb: rdb}, mock
}

func partnerAccountRows(id, partnerID string, total, used int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"partner_account_id", "partner_id", "credits_total", "credits_used", "created_at", "updated_at"}).
		AddRow(id, partnerID, total, used, time.Now(), time.Now())
}

func emptyPartnerAccountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"partner_account_id", "partner_id", "credits_total", "credits_used", "created_at", "updated_at"})
}

func eventAccountRows(id, eventID, partnerID string, allocated, used int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"event_account_id", "event_id", "partner_id", "credits_allocated", "credits_used", "created_at", "updated_at"}).
		AddRow(id, eventID, partnerID, allocated, used, time.Now(), time.Now())
}

func userProfileRows(id, uid string, credits int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"user_profile_id", "uid", "credits", "total_generations", "daily_cap", "unlimited", "created_at", "updated_at"}).
		AddRow(id, uid, credits, 0, 2, false, time.Now(), time.Now())
}

func emptyUserProfileRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"user_profile_id", "uid", "credits", "total_generations", "daily_cap", "unlimited", "created_at", "updated_at"})
}

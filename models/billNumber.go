package models

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rohtashsarraf/jewelbill_backend/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Bill numbers look like JB20240131-007: a fixed prefix, the calendar day
// and a 3-digit counter scoped to that day.
const billNumberPrefix = "JB"

// billNumberMutex serializes in-process allocations. Across processes the
// row lock on "highest number for today's prefix" plus the unique index on
// bill_number guarantee no duplicates; a best-effort redis lock reduces the
// retry rate.
var billNumberMutex sync.Mutex

func billNumberDatePrefix(date time.Time) string {
	return billNumberPrefix + date.Format("20060102")
}

// nextBillNumber allocates the next number for the given day inside the
// caller's transaction. Malformed historical suffixes count as sequence 0.
func nextBillNumber(tx *gorm.DB, ctx context.Context, date time.Time) (string, error) {
	datePrefix := billNumberDatePrefix(date)

	dbCtx := tx.WithContext(ctx).Model(&Bill{}).
		Where("bill_number LIKE ?", datePrefix+"%").
		Order("bill_number DESC").
		Limit(1)
	// sqlite (tests) has no FOR UPDATE; its writer lock serializes instead
	if tx.Dialector.Name() == "mysql" {
		dbCtx = dbCtx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var lastNumber string
	if err := dbCtx.Select("bill_number").Scan(&lastNumber).Error; err != nil {
		return "", err
	}

	seq := parseBillNumberSeq(lastNumber) + 1
	return fmt.Sprintf("%s-%03d", datePrefix, seq), nil
}

func parseBillNumberSeq(billNumber string) int {
	if billNumber == "" {
		return 0
	}
	idx := strings.LastIndex(billNumber, "-")
	if idx < 0 {
		return 0
	}
	seq, err := strconv.Atoi(billNumber[idx+1:])
	if err != nil || seq < 0 {
		return 0
	}
	return seq
}

func obtainBillNumberLock(date time.Time) func() {
	billNumberMutex.Lock()
	lock := config.ObtainRedisLock("billNumber:"+date.Format("20060102"), 5*time.Second)
	return func() {
		config.ReleaseRedisLock(lock)
		billNumberMutex.Unlock()
	}
}

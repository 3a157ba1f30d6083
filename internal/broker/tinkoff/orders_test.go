package tinkoff

import (
	"testing"

	pb "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/stretchr/testify/assert"

	"github.com/camuig/autotrader/internal/broker"
)

func TestCalculateLots(t *testing.T) {
	tests := []struct {
		shares float64
		lot    int64
		want   int64
	}{
		{100, 10, 10},
		{105, 10, 10},
		{9, 10, 0},
		{5, 1, 5},
		{5, 0, 5},
		{0, 10, 0},
		{-3, 1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CalculateLots(tt.shares, tt.lot), "shares=%v lot=%v", tt.shares, tt.lot)
	}
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, broker.StatusFilled, mapStatus(pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_FILL))
	assert.Equal(t, broker.StatusRejected, mapStatus(pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_REJECTED))
	assert.Equal(t, broker.StatusCanceled, mapStatus(pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_CANCELLED))
	assert.Equal(t, broker.StatusPartiallyFilled, mapStatus(pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_PARTIALLYFILL))
	assert.Equal(t, broker.StatusSubmitted, mapStatus(pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_NEW))
}

func TestToQuotation(t *testing.T) {
	q := toQuotation(123.45)
	assert.Equal(t, int64(123), q.Units)
	assert.Equal(t, int32(450000000), q.Nano)

	q = toQuotation(7)
	assert.Equal(t, int64(7), q.Units)
	assert.Equal(t, int32(0), q.Nano)
}

func TestDirection(t *testing.T) {
	assert.Equal(t, pb.OrderDirection_ORDER_DIRECTION_BUY, direction(broker.SideBuy))
	assert.Equal(t, pb.OrderDirection_ORDER_DIRECTION_SELL, direction(broker.SideSell))
}

package moex

import "time"

type NewsItem struct {
	ID        int64
	Title     string
	Published time.Time
}

package service

import "time"

// Hooks for the external service_test package.

var (
	EncodeCursor = encodeCursor
	DecodeCursor = decodeCursor
	DedupeQueue  = dedupeQueue

	SplitPushBatches = splitPushBatches
)

func SetDeviceClock(svc DeviceService, now func() time.Time) {
	svc.(*deviceService).now = now
}

func SetAccountClock(svc AccountService, now func() time.Time) {
	svc.(*accountService).now = now
}

func SetEntryClock(svc EntryService, now func() time.Time) {
	svc.(*entryService).now = now
}

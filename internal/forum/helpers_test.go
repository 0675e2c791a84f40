package forum

import "time"

func testNow() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

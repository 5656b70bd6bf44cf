package postgres

import "time"

func now() time.Time { return time.Now() }

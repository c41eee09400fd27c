package prng

import "time"

func timeSeed() int64 {
	return time.Now().UnixNano()
}

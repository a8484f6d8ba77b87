package load

import (
	"fmt"

	"ingest-service/internal/frame"
)

// TimeDimension generates the static hour/minute lookup: 24 hour buckets
// parented to NA and 1440 minute buckets parented to their hour. The same
// 1464 rows come out every run, so reloading is idempotent.
func TimeDimension() *frame.Frame {
	f := frame.New("time_id", "time_desc", "time_level", "parent_id")
	for h := 0; h < 24; h++ {
		f.Append([]string{
			fmt.Sprintf("H%02d", h),
			fmt.Sprintf("%02d", h),
			"1",
			"NA",
		})
	}
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m++ {
			f.Append([]string{
				fmt.Sprintf("H%02dM%02d", h, m),
				fmt.Sprintf("%02d:%02d", h, m),
				"0",
				fmt.Sprintf("H%02d", h),
			})
		}
	}
	return f
}

package domain

import (
	"fmt"
	"math"
)

// BucketKey maps a coordinate pair onto its lat/long grid cell, rendered as
// "<latbucket>_<lonbucket>" with integer components. Buckets are floored
// toward negative infinity, not truncated toward zero, so negative
// coordinates shard correctly: lat -76.81 at interval 2 buckets to -78.
func BucketKey(lat, lon float64, interval int) string {
	return fmt.Sprintf("%d_%d", bucketFloor(lat, interval), bucketFloor(lon, interval))
}

func bucketFloor(v float64, interval int) int {
	return int(math.Floor(v/float64(interval))) * interval
}

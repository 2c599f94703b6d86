package baseline

// VolumeKey is the rolling-window key for a market's 24h volume.
func VolumeKey(marketID string) string { return "vol:" + marketID }

// EventGapKey is the rolling-window key for an event's pricing gap.
func EventGapKey(eventID string) string { return "gap:" + eventID }

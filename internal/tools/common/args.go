package common

// GetRecordingKeyFromArgs extracts the recording key from request arguments.
// Returns an empty string when the tool takes no recording key.
func GetRecordingKeyFromArgs(args map[string]interface{}) string {
	if key, ok := args["recording_key"].(string); ok {
		return key
	}
	return ""
}

// GetQualityFromArgs extracts the quality name from request arguments.
func GetQualityFromArgs(args map[string]interface{}) string {
	if quality, ok := args["quality_name"].(string); ok {
		return quality
	}
	return ""
}

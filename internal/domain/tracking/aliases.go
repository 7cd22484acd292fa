package tracking

import "strings"

// aliasColumns maps the update-field aliases used by the CRM glue to storage
// column names. One canonical column per concept; lookup is case-insensitive
// so "endTime", "EndTime" and "endtime" all land on end_time and can never
// produce duplicate fields in one update.
var aliasColumns = map[string]string{
	"status":          "status",
	"endtime":         "end_time",
	"end_time":        "end_time",
	"error":           "error_message",
	"errormessage":    "error_message",
	"error_message":   "error_message",
	"progress":        "progress",
	"itemsprocessed":  "items_processed",
	"items_processed": "items_processed",
	"notes":           "system_notes",
	"systemnotes":     "system_notes",
	"system_notes":    "system_notes",
}

// translateFields canonicalizes an update map to storage column names.
// Unmapped keys pass through lowercased; the storage layer rejects columns
// it doesn't know.
func translateFields(updates map[string]any) map[string]any {
	if len(updates) == 0 {
		return nil
	}
	fields := make(map[string]any, len(updates))
	for key, value := range updates {
		lower := strings.ToLower(key)
		if col, ok := aliasColumns[lower]; ok {
			fields[col] = value
			continue
		}
		fields[lower] = value
	}
	return fields
}

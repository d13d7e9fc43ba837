package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gatherly/gatherly/internal/rsvp"
)

// escapeCSVField escapes a string for CSV format
func escapeCSVField(field string) string {
	// Escape double quotes by doubling them
	escaped := strings.ReplaceAll(field, "\"", "\"\"")
	// Replace newlines with spaces for notes fields
	escaped = strings.ReplaceAll(escaped, "\n", " ")
	return escaped
}

// buildCSVRow creates a CSV line for a single roster entry
func buildCSVRow(entry rsvp.RosterEntry) string {
	name := "Anonymous"
	if entry.DisplayName != nil {
		name = *entry.DisplayName
	}

	return fmt.Sprintf("\"%s\",\"%s\",\"%s\",\"%s\"\n",
		escapeCSVField(name), entry.Status, escapeCSVField(entry.Notes),
		entry.UpdatedAt.Format("2006-01-02 15:04"))
}

// writeCSVHeaders sets HTTP headers and writes the CSV header row
func writeCSVHeaders(w http.ResponseWriter, invitationID string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=rsvp-"+invitationID+".csv")

	// Write UTF-8 BOM for Excel compatibility
	w.Write([]byte{0xEF, 0xBB, 0xBF})

	w.Write([]byte("Name,Status,Notes,Updated\n"))
}

// HandleExportCSV exports an invitation's response summary to CSV. Owner
// only.
func HandleExportCSV(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, ok := loadInvitation(s, w, r)
		if !ok {
			return
		}
		if !requireOwner(s, w, r, inv) {
			return
		}

		summary := rsvp.ForOwner(inv)

		writeCSVHeaders(w, inv.ID)
		for _, entry := range summary.Responses {
			w.Write([]byte(buildCSVRow(entry)))
		}

		// Trailing tally so the export stands alone as a summary
		w.Write([]byte(fmt.Sprintf("\nAttending,%d\nMaybe,%d\nNot attending,%d\n",
			summary.Counts.Attending, summary.Counts.Maybe, summary.Counts.NotAttending)))
	}
}

package models

import "strings"

// StatusDisplayInfo contains display information for an occurrence status
type StatusDisplayInfo struct {
	DisplayName string
	BgColor     string
	TextColor   string
	BorderColor string
}

// GetStatusDisplayInfo returns display information for a given status.
// Lookup ignores case and surrounding spaces, the backend is not consistent.
func GetStatusDisplayInfo(status string) StatusDisplayInfo {
	statusMap := map[string]StatusDisplayInfo{
		"aberta": {
			DisplayName: "Aberta",
			BgColor:     "#FFF4E6",
			TextColor:   "#8B6914",
			BorderColor: "#FFA500",
		},
		"em andamento": {
			DisplayName: "Em andamento",
			BgColor:     "#E6F3FF",
			TextColor:   "#0066CC",
			BorderColor: "#4EC6E0",
		},
		"finalizada": {
			DisplayName: "Finalizada",
			BgColor:     "#E6FFE6",
			TextColor:   "#006600",
			BorderColor: "#28a745",
		},
		"cancelada": {
			DisplayName: "Cancelada",
			BgColor:     "#F5F5F5",
			TextColor:   "#666",
			BorderColor: "#8C8C8C",
		},
	}

	if info, ok := statusMap[strings.ToLower(strings.TrimSpace(status))]; ok {
		return info
	}

	// Default for unknown status
	return StatusDisplayInfo{
		DisplayName: status,
		BgColor:     "#E6E6E6",
		TextColor:   "#333",
		BorderColor: "#8C8C8C",
	}
}

package commands

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/rulekit/rulekit/pkg/stores"
)

var (
	okStyle    = color.New(color.FgGreen)
	skipStyle  = color.New(color.FgYellow)
	errStyle   = color.New(color.FgRed, color.Bold)
	addStyle   = color.New(color.FgGreen)
	delStyle   = color.New(color.FgRed)
	titleStyle = color.New(color.Bold)
)

// statusStyle picks the color of a rule or run status.
func statusStyle(status string) *color.Color {
	switch status {
	case "ran", string(stores.RunStatusCompleted):
		return okStyle
	case string(stores.RunStatusSkipped):
		return skipStyle
	case string(stores.RunStatusFailed):
		return errStyle
	}
	return titleStyle
}

// padStatus pads status to width before coloring it so columns stay aligned.
func padStatus(status string, width int) string {
	return statusStyle(status).Sprint(fmt.Sprintf("%-*s", width, status))
}

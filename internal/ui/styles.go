package ui

import (
	"image/color"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
)

// Palette. Blues for the network, green/amber/red for fair/borderline/unfair.
var (
	ColorPrimary   = lipgloss.Color("#0284C7")
	ColorSecondary = lipgloss.Color("#06B6D4")
	ColorSuccess   = lipgloss.Color("#10B981")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorError     = lipgloss.Color("#EF4444")
	ColorMuted     = lipgloss.Color("#6B7280")
	ColorHighlight = lipgloss.Color("#38BDF8")
	ColorText      = lipgloss.Color("#F9FAFB")
	ColorTextDim   = lipgloss.Color("#9CA3AF")
	colorTrack     = lipgloss.Color("#374151")
)

type styleWrapper struct {
	style lipgloss.Style
}

func (s styleWrapper) Render(str string) string { return s.style.Render(str) }

// Bold returns a copy of s with bold set to v.
func (s styleWrapper) Bold(v bool) styleWrapper { return styleWrapper{s.style.Bold(v)} }

func fg(c color.Color) styleWrapper { return styleWrapper{lipgloss.NewStyle().Foreground(c)} }

// Text styles.
var (
	Bold      = styleWrapper{lipgloss.NewStyle().Bold(true)}
	Dim       = fg(ColorTextDim)
	Muted     = fg(ColorMuted)
	Success   = fg(ColorSuccess)
	Warning   = fg(ColorWarning)
	Error     = fg(ColorError)
	Secondary = fg(ColorSecondary)
	Highlight = fg(ColorHighlight).Bold(true)

	Title         = fg(ColorPrimary).Bold(true)
	SectionHeader = fg(ColorSecondary).Bold(true)

	// group-size bars
	ProgressFilled = styleWrapper{lipgloss.NewStyle().Foreground(ColorSecondary).Background(ColorSecondary)}
	ProgressEmpty  = styleWrapper{lipgloss.NewStyle().Foreground(ColorMuted).Background(colorTrack)}

	// workflow task states
	StepPending  = Muted
	StepRunning  = Secondary
	StepComplete = Success
	StepFailed   = Error
	StepSkipped  = Warning
)

func GetCheckMark() string { return Success.Render("✓") }
func GetCrossMark() string { return Error.Render("✗") }
func GetInfoMark() string  { return Secondary.Render("ℹ") }
func GetBullet() string    { return Muted.Render("•") }

type boxWrapper struct {
	style lipgloss.Style
}

func (b boxWrapper) Render(str string) string { return b.style.Render(str) }

func box(border color.Color) boxWrapper {
	return boxWrapper{lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)}
}

// Panels. HighlightBox frames comparisons, SuccessBox an applied adjustment
// and ErrorBox an unreachable fairness target.
var (
	Box          = box(ColorMuted)
	HighlightBox = box(ColorPrimary)
	SuccessBox   = box(ColorSuccess)
	ErrorBox     = box(ColorError)
)

// FormatKeyValue renders "key: value" with a dimmed key.
func FormatKeyValue(key, value string) string {
	return Dim.Render(key+": ") + value
}

// FormatStatus prefixes message with the icon for status
// (success, error, warning or info).
func FormatStatus(status, message string) string {
	var icon string
	switch status {
	case "success":
		icon = GetCheckMark()
	case "error":
		icon = GetCrossMark()
	case "warning":
		icon = Warning.Render("⚠")
	case "info":
		icon = GetInfoMark()
	default:
		icon = GetBullet()
	}
	return icon + " " + message
}

func FangColorScheme(c lipgloss.LightDarkFunc) fang.ColorScheme {
	return fang.ColorScheme{
		Base:           ColorText,
		Title:          ColorPrimary,
		Description:    ColorTextDim,
		Codeblock:      c(lipgloss.Color("#1F2937"), lipgloss.Color("#2F2E36")),
		Program:        ColorSecondary,
		DimmedArgument: ColorMuted,
		Comment:        ColorMuted,
		Flag:           ColorSuccess,
		FlagDefault:    ColorTextDim,
		Command:        ColorHighlight,
		QuotedString:   ColorSecondary,
		Argument:       ColorText,
		Help:           ColorTextDim,
		Dash:           ColorMuted,
		ErrorHeader:    [2]color.Color{ColorText, ColorError},
		ErrorDetails:   ColorError,
	}
}

const BannerASCII = `
  __       _      _            _
 / _| __ _(_)_ __| | ___  __ _| | __
| |_ / _` + "`" + ` | | '__| |/ _ \/ _` + "`" + ` | |/ /
|  _| (_| | | |  | |  __/ (_| |   <
|_|  \__,_|_|_|  |_|\___|\__,_|_|\_\
`

func RenderGradientBanner(banner string) string {
	return Secondary.Render(banner)
}

// ScoreStyle picks a style for a value in [0,1] where higher is better.
func ScoreStyle(v float64) styleWrapper {
	switch {
	case v >= 0.9:
		return Success
	case v >= 0.7:
		return Warning
	default:
		return Error
	}
}

// DisparityStyle picks a style for a disparity against the fairness tolerance:
// within it, within twice it, or beyond.
func DisparityStyle(v, tolerance float64) styleWrapper {
	switch {
	case v <= tolerance:
		return Success
	case v <= 2*tolerance:
		return Warning
	default:
		return Error
	}
}

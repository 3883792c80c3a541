package config

// Request shape for the Messages API.
const (
	APIEndpoint = "https://api.anthropic.com/v1/messages"
	APIVersion  = "2023-06-01"
	Model       = "claude-sonnet-4-20250514"
	MaxTokens   = 2048
)

const (
	DefaultMaxAPICalls = 50
	WordsPerPage       = 400

	// CostPerCall is the rough per-request estimate shown in the usage line.
	CostPerCall = 0.02
	// QuotaWarnRatio marks the usage counter once this share of the quota is spent.
	QuotaWarnRatio = 0.9
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"

	DefaultTheme    = ThemeLight
	DefaultFontSize = 16
	MinFontSize     = 12
	MaxFontSize     = 24
	FontSizeStep    = 2
)

// APIKeyPrefix is the prefix every Anthropic key carries.
const APIKeyPrefix = "sk-ant-"

// Persisted setting keys.
const (
	KeyAPIKey          = "odyssey_api_key"
	KeyReadingPosition = "odyssey_reading_position"
	KeyTheme           = "odyssey_theme"
	KeyFontSize        = "odyssey_font_size"
	KeyMaxAPICalls     = "odyssey_max_api_calls"
	KeyPagePrompt      = "odyssey_page_prompt"
	KeySelectionPrompt = "odyssey_selection_prompt"
)

// Keys lists every persisted key in display order.
var Keys = []string{
	KeyAPIKey,
	KeyReadingPosition,
	KeyTheme,
	KeyFontSize,
	KeyMaxAPICalls,
	KeyPagePrompt,
	KeySelectionPrompt,
}

const DefaultPagePrompt = `I'm reading a page from The Odyssey by Homer (Robert Fagles translation).

Here is the text:
{TEXT}

Please provide a concise analysis with the following sections:

1) SUMMARY: Brief summary of what happens on this page
2) HISTORICAL CONTEXT: Relevant historical or cultural background
3) TRANSLATION NOTES: Any interesting aspects of this translation or Greek terms
4) LITERARY SIGNIFICANCE: Themes, symbolism, or narrative importance

Keep your response focused and informative. Assume the reader is familiar with the general story but wants deeper understanding.`

const DefaultSelectionPrompt = `I'm reading The Odyssey by Homer (Robert Fagles translation), specifically from Book {BOOK}.

Here is the surrounding context:
{CONTEXT_BEFORE}

**[SELECTED TEXT]:**
{SELECTION}

{CONTEXT_AFTER}

Please explain this selected passage in the context of the chapter and the larger epic. Address:
- What's happening in this specific passage
- How it connects to the surrounding narrative
- Its significance to the overall story
- Any notable literary techniques or themes

Be concise but insightful.`

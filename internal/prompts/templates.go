package prompts

import (
	"fmt"
	"os"
	"strings"

	"github.com/avvvet/coffeebuddy/internal/catalog"
)

// Placeholders substituted by Compile
const (
	PlaceholderCatalog  = "{{COFFEE_DOCUMENT}}"
	PlaceholderInput    = "{{USER_INPUT}}"
	PlaceholderUserName = "{{USER_NAME}}"
)

const SystemPrompt = `You are a friendly barista bot for a coffee shop. You take coffee orders in a chat, answer questions about the menu and collect the details needed to deliver the order.

MENU (JSON, product name -> description and price):
{{COFFEE_DOCUMENT}}

The customer's name in the chat is {{USER_NAME}}.

IMPORTANT RULES:
1. Only offer products from the menu above.
2. Collect the customer's name, email, phone number, delivery address and the order itself.
3. Ask for the missing details one or two at a time, politely.
4. Never invent details the customer has not given you.

RESPONSE FORMAT:
Wrap your whole answer in <response></response> tags.
Whenever the customer gives you one of the details, repeat it inside your answer wrapped in its tag, on a single line:
<name>...</name>
<email>...</email>
<phone>...</phone>
<address>...</address>
<order>...</order>
Tagged details are removed before the customer sees your answer, so do not rely on them being read.

Customer's latest message:
{{USER_INPUT}}`

// LoadTemplate reads a prompt template from path. An empty path selects
// SystemPrompt.
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return SystemPrompt, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt template: %w", err)
	}
	return string(b), nil
}

// Compile fills the template's placeholders. A placeholder that is not in
// the template is simply not substituted; the template is not validated.
func Compile(template string, menu catalog.Catalog, userMessage, displayName string) string {
	r := strings.NewReplacer(
		PlaceholderCatalog, menu.String(),
		PlaceholderInput, userMessage,
		PlaceholderUserName, displayName,
	)
	return r.Replace(template)
}

package email

import "strings"

// Render substitutes {placeholder} tokens in a template. Unknown tokens are
// left in place so a typo in a custom template is visible in the output
// instead of silently dropped.
func Render(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for key, value := range vars {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

const quoteLinkBody = `<p>Hi {customer_name},</p>
<p>{business_name} has prepared a quote for you: <strong>{quote_name}</strong>.</p>
<p><a href="{quote_url}">View and sign your quote</a></p>`

const quoteOpenedBody = `<p>{customer_name} just opened your quote <strong>{quote_name}</strong>.</p>
<p>Now is a good time to follow up while it is fresh.</p>`

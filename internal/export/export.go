package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"buscador-gpt/internal/model"
)

var ErrUnknownFormat = errors.New("unknown export format")

type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
)

func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "txt", "text":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func Filename(conv *model.Conversation, f Format) string {
	base := strings.Trim(unsafeFilename.ReplaceAllString(conv.Title, "_"), "_")
	if base == "" {
		base = "conversacion"
	}
	return fmt.Sprintf("%s_%s.%s", base, conv.UpdatedAt.Format("20060102"), f)
}

// Conversation renders one conversation in the requested format.
func Conversation(conv *model.Conversation, f Format) ([]byte, error) {
	switch f {
	case FormatText:
		return []byte(Text(conv)), nil
	case FormatMarkdown:
		return []byte(Markdown(conv)), nil
	case FormatJSON:
		out, err := json.MarshalIndent(conv, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal conversation failed: %w", err)
		}
		return out, nil
	case FormatHTML:
		return HTML(conv)
	default:
		return nil, ErrUnknownFormat
	}
}

func speaker(role model.Role) string {
	if role == model.RoleUser {
		return "Usuario"
	}
	return "Asistente"
}

// Text is the "copy conversation" format. System messages are left out.
func Text(conv *model.Conversation) string {
	blocks := make([]string, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		if msg.Role == model.RoleSystem {
			continue
		}
		blocks = append(blocks, speaker(msg.Role)+": "+msg.Content)
	}
	return strings.Join(blocks, "\n\n")
}

func Markdown(conv *model.Conversation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", conv.Title)
	fmt.Fprintf(&b, "_Creada: %s · Actualizada: %s_\n", conv.CreatedAt.Format(time.DateTime), conv.UpdatedAt.Format(time.DateTime))
	for _, msg := range conv.Messages {
		if msg.Role == model.RoleSystem {
			continue
		}
		fmt.Fprintf(&b, "\n---\n\n**%s** · %s\n\n%s\n", speaker(msg.Role), msg.Timestamp.Format(time.DateTime), msg.Content)
		for _, a := range msg.Attachments {
			fmt.Fprintf(&b, "\n- 📎 %s (%s)\n", a.FileName, a.FileType)
		}
	}
	return b.String()
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

// HTML renders the Markdown export into a standalone page. Raw HTML inside
// messages is not passed through.
func HTML(conv *model.Conversation) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(conv)), &body); err != nil {
		return nil, fmt.Errorf("render conversation html failed: %w", err)
	}
	var out bytes.Buffer
	fmt.Fprintf(&out, "<!DOCTYPE html>\n<html lang=\"es\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", html.EscapeString(conv.Title))
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

package prompts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"text/template"
	"time"

	"webpilot/internal/domain/entity"
)

type ActionInfo struct {
	Name        string
	Description string
	// Params is the JSON of the action's parameter properties, empty when it takes none.
	Params string
}

type SystemPromptData struct {
	Actions    []ActionInfo
	MaxActions int
	Now        string
}

// GenerateSystemPrompt renders baseTemplate with the available actions sorted by name.
func GenerateSystemPrompt(baseTemplate string, actions []entity.ToolDefinition, maxActions int, now time.Time) (string, error) {
	infos := make([]ActionInfo, 0, len(actions))
	for _, a := range actions {
		info := ActionInfo{Name: a.Name, Description: a.Description}
		if props, ok := a.Parameters["properties"].(map[string]interface{}); ok && len(props) > 0 {
			raw, err := json.Marshal(props)
			if err != nil {
				return "", fmt.Errorf("action %s parameters: %w", a.Name, err)
			}
			info.Params = string(raw)
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})

	data := SystemPromptData{
		Actions:    infos,
		MaxActions: maxActions,
		Now:        now.Format("2006-01-02 15:04"),
	}

	tmpl, err := template.New("system").Parse(baseTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

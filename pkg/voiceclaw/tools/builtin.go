package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/memory"
)

// BuildExecutor registers the built-in tool set against a sandbox and
// a memory store. The assistant sees exactly these tools; nothing else
// is reachable from a model response.
func BuildExecutor(fs *SandboxFS, store *memory.Store, logger *slog.Logger) *Executor {
	e := NewExecutor(logger)

	e.Register(MakeDefinition(
		"read_file",
		"Read a text file inside the working folder. Use a relative path like 'notes/todo.txt'.",
		objectSchema(map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Relative path of the file to read.",
			},
		}, "path"),
	), func(ctx context.Context, args map[string]any) (string, error) {
		return fs.ReadText(stringArg(args, "path"))
	})

	e.Register(MakeDefinition(
		"create_file",
		"Create a new text file inside the working folder. Fails if the file already exists.",
		objectSchema(map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Relative path of the file to create.",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Text content to write into the new file.",
			},
		}, "path", "content"),
	), func(ctx context.Context, args map[string]any) (string, error) {
		rel, err := fs.CreateOnly(stringArg(args, "path"), stringArg(args, "content"))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("created %s", rel), nil
	})

	e.Register(MakeDefinition(
		"list_dir",
		"List the entries of a directory inside the working folder. Directories end with '/'.",
		objectSchema(map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Relative directory path. Use '.' for the working folder itself.",
			},
		}),
	), func(ctx context.Context, args map[string]any) (string, error) {
		rel := stringArg(args, "path")
		if rel == "" {
			rel = "."
		}
		entries, err := fs.ListDir(rel)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "(empty)", nil
		}
		return strings.Join(entries, "\n"), nil
	})

	e.Register(MakeDefinition(
		"search",
		"Search text files inside the working folder for a substring. Returns 'path:line:text' matches.",
		objectSchema(map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Substring to look for, case sensitive.",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Relative directory to search under. Defaults to the working folder.",
			},
		}, "query"),
	), func(ctx context.Context, args map[string]any) (string, error) {
		rel := stringArg(args, "path")
		if rel == "" {
			rel = "."
		}
		matches, err := fs.SearchText(stringArg(args, "query"), rel)
		if err != nil {
			return "", err
		}
		if len(matches) == 0 {
			return "no matches", nil
		}
		return strings.Join(matches, "\n"), nil
	})

	e.Register(MakeDefinition(
		"set_preference",
		"Remember a lasting user preference as a key/value pair, e.g. key 'name', value 'Sam'.",
		objectSchema(map[string]any{
			"key": map[string]any{
				"type":        "string",
				"description": "Short identifier for the preference.",
			},
			"value": map[string]any{
				"type":        "string",
				"description": "The preference value to store.",
			},
		}, "key", "value"),
	), func(ctx context.Context, args map[string]any) (string, error) {
		key := strings.TrimSpace(stringArg(args, "key"))
		value := strings.TrimSpace(stringArg(args, "value"))
		if key == "" {
			return "", fmt.Errorf("preference key must not be empty")
		}
		if err := store.SetPreference(key, value); err != nil {
			return "", err
		}
		return fmt.Sprintf("remembered %s", key), nil
	})

	return e
}

// objectSchema builds a JSON-Schema object with the given properties
// and required keys.
func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

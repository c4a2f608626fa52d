package fileops

import (
	"context"

	"github.com/agentfs/agentfs/internal/vfs"
)

// BuildApprovalPreview simulates a prospective write or edit against
// current backend content and returns the record the live operation would
// produce, without mutating anything. A failing edit surfaces the same
// error text as live execution so it is diagnosable in the approval prompt.
// Tool names other than write_file and edit_file yield nil.
func BuildApprovalPreview(ctx context.Context, toolName string, args map[string]any, backend vfs.Backend) (*Record, error) {
	if toolName != "write_file" && toolName != "edit_file" {
		return nil, nil
	}
	path, err := vfs.Validate(stringArg(args, "file_path"))
	if err != nil {
		return nil, err
	}

	record := &Record{ToolName: toolName, Args: args}

	before, readErr := backend.Read(ctx, path, 0, 0)
	exists := readErr == nil

	var after string
	switch toolName {
	case "write_file":
		if exists {
			record.Error = vfs.AlreadyExistsMessage(path)
			return record, nil
		}
		after = stringArg(args, "content")
	case "edit_file":
		if !exists {
			record.Error = vfs.NotFoundMessage(path)
			return record, nil
		}
		replaceAll, _ := args["replace_all"].(bool)
		updated, _, errText := vfs.SimulateEdit(
			before,
			stringArg(args, "old_string"),
			stringArg(args, "new_string"),
			replaceAll,
		)
		if errText != "" {
			record.Error = errText
			return record, nil
		}
		after = updated
	}

	diff, err := unifiedDiff(beforeOrEmpty(before, exists), after, path)
	if err != nil {
		return nil, err
	}
	record.Diff = diff
	record.Metrics.LinesAdded, record.Metrics.LinesRemoved = countChanges(diff)
	record.Metrics.LinesWritten = countLines(after)
	return record, nil
}

func beforeOrEmpty(before string, exists bool) string {
	if exists {
		return before
	}
	return ""
}

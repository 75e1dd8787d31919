package vision

import (
	"context"
	"fmt"
	"os"

	"shellmind/internal/logging"
	"shellmind/internal/tools"
)

// ClassifyImageTool returns the classify_image tool. The executor
// fans a list of image paths out into one call per image.
func ClassifyImageTool(ec *tools.ExecutionContext, classifier Classifier) *tools.Tool {
	return &tools.Tool{
		Name:        tools.NameClassifyImage,
		Description: "Answer a question about an image file using a vision model",
		Category:    tools.CategoryVision,
		ReadOnly:    true,
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return executeClassifyImage(ctx, ec, classifier, args)
		},
		Schema: tools.ToolSchema{
			Required: []string{"image_path", "question"},
			Properties: map[string]tools.Property{
				"image_path": {
					Type:        "string",
					Description: "Path to the image file",
				},
				"question": {
					Type:        "string",
					Description: "The question to ask about the image",
				},
			},
		},
	}
}

func executeClassifyImage(ctx context.Context, ec *tools.ExecutionContext, classifier Classifier, args map[string]any) (any, error) {
	path, _ := args["image_path"].(string)
	question, _ := args["question"].(string)
	if path == "" {
		return nil, fmt.Errorf("image_path is required")
	}
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}

	resolved := ec.Resolve(path)
	if _, err := os.Stat(resolved); err != nil {
		return nil, fmt.Errorf("image file not found at %s", resolved)
	}

	logging.ToolsDebug("classify_image: path=%s question=%q", resolved, question)
	answer, err := classifier.Classify(ctx, resolved, question)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	logging.Tools("classify_image completed: %s", resolved)
	return map[string]any{"response": answer}, nil
}

// RegisterAll registers the vision tools.
func RegisterAll(registry *tools.Registry, ec *tools.ExecutionContext, classifier Classifier) {
	registry.MustRegister(ClassifyImageTool(ec, classifier))
}

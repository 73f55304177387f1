package tools

import (
	"context"
	"fmt"
	"strings"

	"imagegen/common"
	"imagegen/internal/imagegen"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// imageTools MCP 工具处理器，复用 CLI / Web 相同的校验与保存流程
type imageTools struct {
	service *imagegen.Service
}

// RegisterImageTools 注册图片生成和编辑的 MCP tools：
//   - generate_image 文生图，返回保存的文件路径
//   - edit_image     基于本地图片编辑，返回保存的文件路径
func RegisterImageTools(s *server.MCPServer, service *imagegen.Service) error {
	t := &imageTools{service: service}

	generateImageTool := mcp.NewTool(
		"generate_image",
		mcp.WithDescription("Generate images from a text prompt. Images are saved to the server output directory and their paths are returned."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("Text prompt describing the image to generate"),
		),
		mcp.WithString("size",
			mcp.Description("Image size: "+strings.Join(imagegen.Sizes, ", ")),
			mcp.Enum(imagegen.Sizes...),
		),
		mcp.WithString("quality",
			mcp.Description("Image quality"),
			mcp.Enum(imagegen.GenerateQualities...),
		),
		mcp.WithString("moderation",
			mcp.Description("Content moderation level"),
			mcp.Enum(imagegen.Moderations...),
		),
		mcp.WithNumber("n",
			mcp.Description(fmt.Sprintf("Number of images (%d-%d)", imagegen.MinCount, imagegen.MaxCount)),
		),
	)
	s.AddTool(generateImageTool, t.generate)

	editImageTool := mcp.NewTool(
		"edit_image",
		mcp.WithDescription("Edit one or more local images with a text prompt. Multiple images act as references; a mask only applies to a single image."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("Text prompt describing how to edit the image"),
		),
		mcp.WithArray("images",
			mcp.Required(),
			mcp.Description("Local paths of the source images (png, jpg, jpeg, gif)"),
			mcp.WithStringItems(),
		),
		mcp.WithString("mask",
			mcp.Description("Local path of a mask PNG; transparent areas are edited"),
		),
		mcp.WithString("size",
			mcp.Description("Image size: "+strings.Join(imagegen.Sizes, ", ")),
			mcp.Enum(imagegen.Sizes...),
		),
		mcp.WithString("quality",
			mcp.Description("Image quality"),
			mcp.Enum(imagegen.EditQualities...),
		),
		mcp.WithString("input_fidelity",
			mcp.Description("Preserve faces, logos and details from the input: high or low"),
		),
		mcp.WithNumber("n",
			mcp.Description(fmt.Sprintf("Number of images (%d-%d)", imagegen.MinCount, imagegen.MaxCount)),
		),
	)
	s.AddTool(editImageTool, t.edit)

	return nil
}

func (t *imageTools) generate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("prompt parameter is required: %v", err)), nil
	}

	genReq, err := imagegen.ValidateGenerate(imagegen.GenerateInput{
		Prompt:     prompt,
		Size:       req.GetString("size", ""),
		Quality:    req.GetString("quality", ""),
		Count:      req.GetInt("n", imagegen.DefaultCount),
		Moderation: req.GetString("moderation", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	common.WithFields(map[string]interface{}{
		"size":    genReq.Size,
		"quality": genReq.Quality,
		"n":       genReq.Count,
	}).Info("MCP: generating image")

	result, err := t.service.Generate(ctx, genReq, imagegen.Output{})
	if err != nil {
		common.WithError(err).Error("MCP: failed to generate image")
		return mcp.NewToolResultError(fmt.Sprintf("failed to generate image: %v", err)), nil
	}
	return mcp.NewToolResultText(formatResult("Generated", result)), nil
}

func (t *imageTools) edit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("prompt parameter is required: %v", err)), nil
	}
	images, err := req.RequireStringSlice("images")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("images parameter is required: %v", err)), nil
	}

	mask := req.GetString("mask", "")
	if err := imagegen.CheckMaskUsage(len(images), mask); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fidelity, err := imagegen.ParseFidelity(req.GetString("input_fidelity", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	editReq, err := imagegen.ValidateEdit(imagegen.EditInput{
		GenerateInput: imagegen.GenerateInput{
			Prompt:  prompt,
			Size:    req.GetString("size", ""),
			Quality: req.GetString("quality", ""),
			Count:   req.GetInt("n", imagegen.DefaultCount),
		},
		Images:   images,
		Mask:     mask,
		Fidelity: fidelity,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	common.WithFields(map[string]interface{}{
		"image_count": len(editReq.Images),
		"has_mask":    editReq.Mask != "",
		"n":           editReq.Count,
	}).Info("MCP: editing image")

	result, err := t.service.Edit(ctx, editReq, imagegen.Output{})
	if err != nil {
		common.WithError(err).Error("MCP: failed to edit image")
		return mcp.NewToolResultError(fmt.Sprintf("failed to edit image: %v", err)), nil
	}
	return mcp.NewToolResultText(formatResult("Edited", result)), nil
}

// formatResult 每行一个文件路径，镜像地址附在后面
func formatResult(verb string, result *imagegen.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d image(s):", verb, len(result.Artifacts))
	for _, a := range result.Artifacts {
		b.WriteString("\n")
		b.WriteString(a.Path)
		if a.RemoteURL != "" {
			b.WriteString(" ")
			b.WriteString(a.RemoteURL)
		}
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(&b, "\nWarning: %s", w)
	}
	return b.String()
}

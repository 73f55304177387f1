package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"imagegen/common"
	"imagegen/internal/imagegen"
	"imagegen/internal/storage"

	"github.com/spf13/cobra"
)

// Deps 命令依赖，测试时替换为假实现
type Deps struct {
	LoadConfig func() (*common.Config, error)
	NewService func(cfg *common.Config) (*imagegen.Service, error)
}

// DefaultDeps 从环境变量加载配置并创建真实的提供方客户端
func DefaultDeps() Deps {
	return Deps{
		LoadConfig: common.LoadConfig,
		NewService: imagegen.NewServiceFromConfig,
	}
}

type options struct {
	images     []string
	mask       string
	size       string
	quality    string
	moderation string
	fidelity   string
	num        int
	outputDir  string
}

// NewCommand 创建 imagegen 根命令：提供 --image 时为编辑模式，否则为文生图
func NewCommand(deps Deps) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "imagegen [flags] prompt...",
		Short: "Generate or edit images from a text prompt",
		Long: `Generate images from a text prompt, or edit existing images when --image is given.

Examples:
  imagegen "a red cube on a white table"
  imagegen "add a rainbow" --image photo.png --mask mask.png
  imagegen "gift basket with these items" -i soap.png -i lotion.png -n 2`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, deps, opts, strings.Join(args, " "))
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&opts.images, "image", "i", nil, "input image path(s); activates edit mode, repeat or comma separate for multiple references")
	flags.StringVarP(&opts.mask, "mask", "m", "", "mask PNG for editing a region, only with a single --image")
	flags.StringVar(&opts.size, "size", imagegen.DefaultSize, "image size: "+strings.Join(imagegen.Sizes, ", "))
	flags.StringVar(&opts.quality, "quality", imagegen.DefaultQuality, "image quality: high, medium, low, standard (generate) or auto (edit)")
	flags.StringVar(&opts.moderation, "moderation", imagegen.DefaultModeration, "content moderation level for generation: "+strings.Join(imagegen.Moderations, ", "))
	flags.StringVar(&opts.fidelity, "input-fidelity", "", "input fidelity for editing: high, low")
	flags.IntVarP(&opts.num, "num", "n", imagegen.DefaultCount, fmt.Sprintf("number of images to create (%d-%d)", imagegen.MinCount, imagegen.MaxCount))
	flags.StringVarP(&opts.outputDir, "output-dir", "o", ".", "directory to save images to")

	return cmd
}

func run(cmd *cobra.Command, deps Deps, opts *options, prompt string) error {
	stderr := cmd.ErrOrStderr()
	input := imagegen.GenerateInput{
		Prompt:     prompt,
		Size:       opts.size,
		Quality:    opts.quality,
		Count:      opts.num,
		Moderation: opts.moderation,
	}

	// 先完成所有本地校验，再加载配置和调用接口
	var (
		genReq  *imagegen.GenerationRequest
		editReq *imagegen.EditRequest
		prefix  string
	)
	if len(opts.images) > 0 {
		for _, path := range opts.images {
			if !fileExists(path) {
				return fmt.Errorf("image file not found at '%s'", path)
			}
		}
		if opts.mask != "" && !fileExists(opts.mask) {
			return fmt.Errorf("mask file not found at '%s'", opts.mask)
		}
		if err := imagegen.CheckMaskUsage(len(opts.images), opts.mask); err != nil {
			return fmt.Errorf("providing a mask (--mask) is not supported when multiple input images (--image) are specified")
		}
		fidelity, err := imagegen.ParseFidelity(opts.fidelity)
		if err != nil {
			return err
		}

		editReq, err = imagegen.ValidateEdit(imagegen.EditInput{
			GenerateInput: input,
			Images:        opts.images,
			Mask:          opts.mask,
			Fidelity:      fidelity,
		})
		if err != nil {
			return err
		}
		prefix = "edited"
	} else {
		if opts.mask != "" {
			fmt.Fprintln(stderr, "Warning: --mask argument ignored when not in edit mode (no --image provided).")
		}
		var err error
		genReq, err = imagegen.ValidateGenerate(input)
		if err != nil {
			return err
		}
		prefix = "output"
	}

	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.OutputDir = opts.outputDir

	svc, err := deps.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to create image service: %w", err)
	}
	defer svc.Close()

	ctx := cmd.Context()
	out := imagegen.Output{Base: storage.PromptFileBase(prefix, prompt)}

	var result *imagegen.Result
	if editReq != nil {
		fmt.Fprintf(stderr, "Editing %d image(s) with prompt: %q\n", len(editReq.Images), editReq.Prompt)
		result, err = svc.Edit(ctx, editReq, out)
	} else {
		fmt.Fprintf(stderr, "Generating %d image(s) with prompt: %q\n", genReq.Count, genReq.Prompt)
		result, err = svc.Generate(ctx, genReq, out)
	}
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(stderr, "Warning: %s\n", w)
	}
	stdout := cmd.OutOrStdout()
	for _, a := range result.Artifacts {
		fmt.Fprintf(stdout, "Saved %s\n", a.Path)
		if a.RemoteURL != "" {
			fmt.Fprintf(stdout, "Uploaded %s\n", a.RemoteURL)
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

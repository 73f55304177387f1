package web

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"

	"imagegen/common"
	"imagegen/internal/imagegen"
	"imagegen/internal/storage"

	"github.com/labstack/echo/v4"
)

// generateRequest POST /generate 的请求体；n 可以是数字或数字字符串
type generateRequest struct {
	Prompt  string          `json:"prompt"`
	Size    string          `json:"size"`
	Quality string          `json:"quality"`
	N       json.RawMessage `json:"n"`
}

type parameters struct {
	Size    string `json:"size"`
	Quality string `json:"quality"`
	Count   int    `json:"count"`
}

// editParameters 编辑结果总是带 had_mask 和 input_fidelity，未设置时 input_fidelity 为 null
type editParameters struct {
	parameters
	HadMask       bool    `json:"had_mask"`
	InputFidelity *string `json:"input_fidelity"`
}

type imageResponse struct {
	Success    bool        `json:"success"`
	Images     []string    `json:"images"`
	RemoteURLs []string    `json:"remote_urls,omitempty"`
	Prompt     string      `json:"prompt"`
	Parameters interface{} `json:"parameters"`
}

func (s *Server) index(c echo.Context) error {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, page)
}

func favicon(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) generate(c echo.Context) error {
	var body generateRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return s.respondError(c, "generate", common.InvalidParam("body", "Invalid JSON body"))
	}

	count, err := parseJSONCount(body.N)
	if err != nil {
		return s.respondError(c, "generate", err)
	}

	req, err := imagegen.ValidateGenerate(imagegen.GenerateInput{
		Prompt:  body.Prompt,
		Size:    imagegen.NormalizeSize(body.Size),
		Quality: body.Quality,
		Count:   count,
	})
	if err != nil {
		return s.respondError(c, "generate", err)
	}

	result, err := s.service.Generate(c.Request().Context(), req, imagegen.Output{})
	if err != nil {
		return s.respondError(c, "generate", err)
	}
	s.metrics.RecordImages("generate", len(result.Artifacts))

	return c.JSON(http.StatusOK, s.imageResponse(req.Prompt, result, parameters{
		Size:    req.Size,
		Quality: req.Quality,
		Count:   req.Count,
	}))
}

// parseJSONCount 缺省为 1；接受数字和数字字符串
func parseJSONCount(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return imagegen.DefaultCount, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return imagegen.ParseCount(s)
	}
	return imagegen.ParseCount(string(raw))
}

func (s *Server) edit(c echo.Context) error {
	image, err := formFile(c, "image")
	if err != nil {
		return s.respondError(c, "edit", err)
	}
	if image == nil {
		return s.respondError(c, "edit", common.InvalidParam("image", "Image file is required"))
	}
	if image.Filename == "" {
		return s.respondError(c, "edit", common.InvalidParam("image", "No image selected"))
	}

	mask, err := formFile(c, "mask")
	if err != nil {
		return s.respondError(c, "edit", err)
	}
	maskName := ""
	if mask != nil {
		maskName = mask.Filename
	}

	count, err := imagegen.ParseCount(c.FormValue("n"))
	if err != nil {
		return s.respondError(c, "edit", err)
	}

	// 无法识别的保真度不报错，原样回显但不发送
	rawFidelity := c.FormValue("input_fidelity")
	fidelity := imagegen.Fidelity(rawFidelity)
	if !fidelity.Recognized() {
		fidelity = imagegen.FidelityUnset
	}

	req, err := imagegen.ValidateEdit(imagegen.EditInput{
		GenerateInput: imagegen.GenerateInput{
			Prompt:  c.FormValue("prompt"),
			Size:    c.FormValue("size"),
			Quality: c.FormValue("quality"),
			Count:   count,
		},
		Images:   []string{image.Filename},
		Mask:     maskName,
		Fidelity: fidelity,
	})
	if err != nil {
		return s.respondError(c, "edit", err)
	}

	// 上传文件只在本次请求内有效，任何退出路径都会删除
	uploads := storage.NewUploads(s.cfg.UploadDir)
	defer uploads.Cleanup()

	imagePath, err := saveUpload(uploads, "temp", image)
	if err != nil {
		return s.respondError(c, "edit", err)
	}
	req.Images = []string{imagePath}
	if mask != nil {
		maskPath, err := saveUpload(uploads, "mask", mask)
		if err != nil {
			return s.respondError(c, "edit", err)
		}
		req.Mask = maskPath
	}

	result, err := s.service.Edit(c.Request().Context(), req, imagegen.Output{})
	if err != nil {
		return s.respondError(c, "edit", err)
	}
	s.metrics.RecordImages("edit", len(result.Artifacts))

	params := editParameters{
		parameters: parameters{
			Size:    req.Size,
			Quality: req.Quality,
			Count:   req.Count,
		},
		HadMask: result.HadMask,
	}
	if rawFidelity != "" {
		params.InputFidelity = &rawFidelity
	}
	return c.JSON(http.StatusOK, s.imageResponse(req.Prompt, result, params))
}

// formFile 读取可选的上传文件；字段不存在或文件名为空（表单未选择）时返回 nil
func formFile(c echo.Context, field string) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		// 请求体超过限制等错误交给框架处理
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, he
		}
		return nil, common.InvalidParam(field, "Invalid multipart form: %v", err)
	}
	if field == "mask" && fh.Filename == "" {
		return nil, nil
	}
	return fh, nil
}

func saveUpload(uploads *storage.Uploads, prefix string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", &common.StorageError{Op: "open upload", Path: fh.Filename, Err: err}
	}
	defer src.Close()
	return uploads.Save(prefix, fh.Filename, src)
}

func (s *Server) imageResponse(prompt string, result *imagegen.Result, params interface{}) imageResponse {
	resp := imageResponse{
		Success:    true,
		Images:     make([]string, 0, len(result.Artifacts)),
		Prompt:     prompt,
		Parameters: params,
	}
	for _, a := range result.Artifacts {
		resp.Images = append(resp.Images, "/download/"+a.Name)
		if a.RemoteURL != "" {
			resp.RemoteURLs = append(resp.RemoteURLs, a.RemoteURL)
		}
	}
	return resp
}

func (s *Server) download(c echo.Context) error {
	path, name, err := s.resolve(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "File not found"})
	}
	return c.Attachment(path, name)
}

func (s *Server) preview(c echo.Context) error {
	path, name, err := s.resolve(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "File not found"})
	}
	return c.Inline(path, name)
}

func (s *Server) resolve(c echo.Context) (string, string, error) {
	name := c.Param("filename")
	path, err := s.service.Writer().Resolve(name)
	if err != nil {
		common.WithField("filename", name).Debug("Requested file not found")
		return "", "", err
	}
	return path, storage.SecureFilename(name), nil
}

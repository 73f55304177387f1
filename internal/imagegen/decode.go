package imagegen

import (
	"encoding/base64"

	"imagegen/common"
	"imagegen/internal/genai"
)

// DecodePayloads 将接口返回的 base64 数据解码为原始字节。
// 只支持内联数据：任一图片为 URL 或解码失败时整体失败。
func DecodePayloads(payloads []genai.Payload) ([][]byte, error) {
	if len(payloads) == 0 {
		return nil, common.MalformedResponse("no image data returned")
	}

	images := make([][]byte, 0, len(payloads))
	for i, p := range payloads {
		if p.B64JSON == "" {
			if p.URL != "" {
				return nil, common.MalformedResponse("image %d returned as URL, only inline data is supported", i)
			}
			return nil, common.MalformedResponse("image %d has no data", i)
		}
		data, err := base64.StdEncoding.DecodeString(p.B64JSON)
		if err != nil {
			return nil, common.MalformedResponse("failed to decode image %d: %v", i, err)
		}
		images = append(images, data)
	}
	return images, nil
}

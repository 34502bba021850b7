package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Tutortoise/face-mask-service/imageio"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

type imagePayload struct {
	ImageData *string `json:"image_data"`
}

// readInput resolves the image carried by r: a multipart "image" file, a JSON
// "image_data" string, or a raw image body.
func readInput(r *http.Request) (imageio.Input, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch {
	case mediaType == "multipart/form-data":
		return readMultipartInput(r)
	case mediaType == "application/json":
		return readJSONInput(r.Body)
	case strings.HasPrefix(mediaType, "image/"), mediaType == "application/octet-stream":
		return readRawInput(r.Body)
	default:
		return nil, ErrMissingInput
	}
}

func readMultipartInput(r *http.Request) (imageio.Input, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, bodyError(err)
	}

	file, _, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, bodyError(err)
		}
		return imageio.RawBytes(data), nil
	}
	if !errors.Is(err, http.ErrMissingFile) {
		return nil, bodyError(err)
	}

	// A file field submitted without a filename arrives as a plain value.
	if _, ok := r.MultipartForm.Value["image"]; ok {
		return nil, ErrNoFileSelected
	}
	if data := r.FormValue("image_data"); data != "" {
		return imageio.Base64Image(data), nil
	}
	return nil, ErrMissingInput
}

func readJSONInput(body io.Reader) (imageio.Input, error) {
	var payload imagePayload
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, bodyError(err)
	}
	if payload.ImageData == nil || *payload.ImageData == "" {
		return nil, ErrMissingInput
	}
	return imageio.Base64Image(*payload.ImageData), nil
}

func readRawInput(body io.Reader) (imageio.Input, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, bodyError(err)
	}
	if len(data) == 0 {
		return nil, ErrMissingInput
	}
	return imageio.RawBytes(data), nil
}

// frameInput resolves the image carried by a websocket frame: a JSON text
// frame like a /detect body, or the raw image bytes in a binary frame.
func frameInput(messageType int, data []byte) (imageio.Input, error) {
	switch messageType {
	case websocket.TextMessage:
		return readJSONInput(bytes.NewReader(data))
	case websocket.BinaryMessage:
		if len(data) == 0 {
			return nil, ErrMissingInput
		}
		return imageio.RawBytes(data), nil
	default:
		return nil, ErrMissingInput
	}
}

// bodyError keeps an exceeded body limit visible to the caller and reports
// any other unreadable body as missing input.
func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrMissingInput, err)
}

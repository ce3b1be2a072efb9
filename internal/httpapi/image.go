package httpapi

import (
	"errors"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strconv"

	"github.com/nfnt/resize"

	"mnistd/internal/tensor"
)

// readImage decodes the multipart "image" field and turns it into 784
// grayscale intensities in [0,255], row-major.
func readImage(w http.ResponseWriter, r *http.Request) ([]float32, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, requestError{status: http.StatusRequestEntityTooLarge, msg: "image too large"}
		}
		return nil, requestError{status: http.StatusUnsupportedMediaType, msg: "expected multipart/form-data with an 'image' field"}
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, badRequest("no image file provided; use 'image' as the form field name")
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, badRequest("invalid image format; supported: PNG, JPEG, GIF")
	}
	invert, _ := strconv.ParseBool(r.URL.Query().Get("invert"))
	return imagePixels(img, invert), nil
}

// imagePixels scales img to 28x28 and converts it to grayscale. MNIST
// digits are light on dark; invert flips dark-on-light drawings.
func imagePixels(img image.Image, invert bool) []float32 {
	small := resize.Resize(tensor.Width, tensor.Height, img, resize.Bilinear)
	b := small.Bounds()
	out := make([]float32, 0, tensor.Pixels)
	for y := b.Min.Y; y < b.Min.Y+tensor.Height; y++ {
		for x := b.Min.X; x < b.Min.X+tensor.Width; x++ {
			g := color.GrayModel.Convert(small.At(x, y)).(color.Gray).Y
			if invert {
				g = 255 - g
			}
			out = append(out, float32(g))
		}
	}
	return out
}

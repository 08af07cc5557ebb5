package vision

import (
	"fmt"
	"image"
	"sort"
	"strings"
)

// Detection описывает объект, найденный моделью, в пикселях исходного изображения.
type Detection struct {
	ClassID    int
	Confidence float32
	Box        image.Rectangle
}

// DecodeYOLOv5 разбирает выход YOLOv5 формы [1, N, 5+классы]:
// cx, cy, w, h (в пикселях входа модели), objectness, вероятности классов.
func DecodeYOLOv5(data []float32, rowSize int, inputSize, imgW, imgH int, confThreshold float32) ([]Detection, error) {
	if rowSize <= 5 {
		return nil, fmt.Errorf("unexpected yolo row size %d", rowSize)
	}
	if len(data)%rowSize != 0 {
		return nil, fmt.Errorf("yolo output length %d is not a multiple of %d", len(data), rowSize)
	}

	scaleX := float32(imgW) / float32(inputSize)
	scaleY := float32(imgH) / float32(inputSize)

	var dets []Detection
	for off := 0; off < len(data); off += rowSize {
		row := data[off : off+rowSize]
		objectness := row[4]
		if objectness < confThreshold {
			continue
		}

		classID, best := 0, float32(0)
		for i, score := range row[5:] {
			if score > best {
				classID, best = i, score
			}
		}
		conf := objectness * best
		if conf < confThreshold {
			continue
		}

		cx, cy, w, h := row[0]*scaleX, row[1]*scaleY, row[2]*scaleX, row[3]*scaleY
		box := image.Rect(int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)).Intersect(image.Rect(0, 0, imgW, imgH))
		if box.Empty() {
			continue
		}
		dets = append(dets, Detection{ClassID: classID, Confidence: conf, Box: box})
	}
	return dets, nil
}

// NonMaxSuppression оставляет по одной рамке на объект внутри каждого класса.
func NonMaxSuppression(dets []Detection, iouThreshold float64) []Detection {
	sorted := append([]Detection(nil), dets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]Detection, 0, len(sorted))
	for _, d := range sorted {
		overlaps := false
		for _, k := range kept {
			if k.ClassID == d.ClassID && iou(k.Box, d.Box) > iouThreshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, d)
		}
	}
	return kept
}

func iou(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	interArea := float64(inter.Dx() * inter.Dy())
	union := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}

// FormatLabelLines кодирует найденные объекты в формат файла меток YOLO
// с координатами, нормированными к размерам изображения.
func FormatLabelLines(dets []Detection, imgW, imgH int) string {
	var b strings.Builder
	for _, d := range dets {
		w := float64(d.Box.Dx()) / float64(imgW)
		h := float64(d.Box.Dy()) / float64(imgH)
		cx := (float64(d.Box.Min.X) + float64(d.Box.Dx())/2) / float64(imgW)
		cy := (float64(d.Box.Min.Y) + float64(d.Box.Dy())/2) / float64(imgH)
		fmt.Fprintf(&b, "%d %.6f %.6f %.6f %.6f\n", d.ClassID, cx, cy, w, h)
	}
	return b.String()
}

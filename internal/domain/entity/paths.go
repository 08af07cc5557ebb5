package entity

import (
	"path"
	"path/filepath"
	"strings"
)

// PredictionsPrefix задаёт префикс ключей размеченных изображений в хранилище.
const PredictionsPrefix = "predictions"

// Все производные артефакты запроса адресуются через prediction_id, а не через
// имя исходного файла: два запроса с одинаковым именем файла не пересекаются.

// ImageFileName возвращает имя файла из ключа хранилища.
func ImageFileName(imageKey string) string {
	return path.Base(imageKey)
}

// StagedImagePath возвращает путь локальной копии исходного изображения для запроса.
func StagedImagePath(scratchDir, predictionID, fileName string) string {
	return filepath.Join(scratchDir, predictionID, fileName)
}

// PredictionOutputDir возвращает каталог результатов детектора для запроса.
func PredictionOutputDir(projectDir, predictionID string) string {
	return filepath.Join(projectDir, predictionID)
}

// PredictedImagePath возвращает путь размеченного изображения внутри каталога результатов.
func PredictedImagePath(outputDir, fileName string) string {
	return filepath.Join(outputDir, fileName)
}

// LabelFilePath возвращает путь файла меток внутри каталога результатов (имя без расширения).
func LabelFilePath(outputDir, fileName string) string {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	return filepath.Join(outputDir, "labels", stem+".txt")
}

// PredictedImageKey возвращает ключ размеченного изображения: predictions/<id>/<имя файла>.
func PredictedImageKey(predictionID, fileName string) string {
	return path.Join(PredictionsPrefix, predictionID, fileName)
}

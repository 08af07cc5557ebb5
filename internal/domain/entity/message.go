package entity

// PhotoSize: один вариант размера фото из чата.
type PhotoSize struct {
	FileID   string
	Width    int
	Height   int
	FileSize int
}

// ChatMessage: входящее сообщение чата в независимом от платформы виде.
type ChatMessage struct {
	ChatID int64
	Text   string
	Photos []PhotoSize
}

// HasPhoto сообщает, содержит ли сообщение фото.
func (m ChatMessage) HasPhoto() bool {
	return len(m.Photos) > 0
}

// LargestPhoto возвращает вариант фото с максимальным разрешением.
// При равном разрешении выигрывает больший файл, затем более поздний вариант.
func (m ChatMessage) LargestPhoto() (PhotoSize, bool) {
	if len(m.Photos) == 0 {
		return PhotoSize{}, false
	}

	best := m.Photos[0]
	for _, p := range m.Photos[1:] {
		area, bestArea := p.Width*p.Height, best.Width*best.Height
		if area > bestArea || (area == bestArea && p.FileSize >= best.FileSize) {
			best = p
		}
	}
	return best, true
}

package entity

// ClassNames: неизменяемая таблица «индекс класса → имя».
// Создаётся один раз при старте и только читается, поэтому безопасна для горутин.
type ClassNames struct {
	names map[int]string
}

// NewClassNames копирует переданную таблицу.
func NewClassNames(names map[int]string) ClassNames {
	copied := make(map[int]string, len(names))
	for idx, name := range names {
		copied[idx] = name
	}
	return ClassNames{names: copied}
}

// ClassNamesFromList строит таблицу из списка, индексом служит позиция в списке.
func ClassNamesFromList(names []string) ClassNames {
	m := make(map[int]string, len(names))
	for idx, name := range names {
		m[idx] = name
	}
	return ClassNames{names: m}
}

// Name возвращает имя класса по индексу.
func (c ClassNames) Name(idx int) (string, bool) {
	name, ok := c.names[idx]
	return name, ok
}

// Len возвращает количество классов.
func (c ClassNames) Len() int {
	return len(c.names)
}

package value

import (
	"fmt"
)

// ObjectType задаёт канонический тип объекта недвижимости по сделке.
type ObjectType string

const (
	ObjectTypeUnknown       ObjectType = ""
	ObjectTypeApartment     ObjectType = "apartment"
	ObjectTypeStoragePantry ObjectType = "storage-pantry"
	ObjectTypeParkingSpot   ObjectType = "parking-spot"
)

//nolint:gochecknoglobals
var objectTypeLabels = map[ObjectType]string{
	ObjectTypeApartment:     "Квартиры",
	ObjectTypeStoragePantry: "Кладовки",
	ObjectTypeParkingSpot:   "Машиноместа",
}

// ObjectTypes возвращает известные типы в порядке показа пользователю.
func ObjectTypes() []ObjectType {
	return []ObjectType{ObjectTypeApartment, ObjectTypeStoragePantry, ObjectTypeParkingSpot}
}

func ParseObjectType(s string) (ObjectType, error) {
	t := ObjectType(s)
	if _, ok := objectTypeLabels[t]; !ok {
		return ObjectTypeUnknown, fmt.Errorf("unknown object type %q", s)
	}
	return t, nil
}

// ObjectTypeFromLabel переводит подпись кнопки обратно в тип.
func ObjectTypeFromLabel(label string) (ObjectType, bool) {
	for t, l := range objectTypeLabels {
		if l == label {
			return t, true
		}
	}
	return ObjectTypeUnknown, false
}

func (t ObjectType) String() string {
	return string(t)
}

// Label возвращает подпись для сообщений и отчётов. Для неизвестного типа пустая.
func (t ObjectType) Label() string {
	return objectTypeLabels[t]
}

// HasFacing сообщает, имеет ли смысл тип отделки для объекта.
func (t ObjectType) HasFacing() bool {
	return t == ObjectTypeApartment
}

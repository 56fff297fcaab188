package profitbase

import (
	"strconv"
	"strings"
	"time"

	"dkp_bot/internal/domain/entity"
	"dkp_bot/internal/domain/value"
)

const (
	houseDelimiter = "№"
	// Profitbase отдаёт время без зоны, фактически в UTC.
	registeredAtLayout = "2006-01-02 15:04 -0700"
	registeredAtOffset = " +0000"
)

//nolint:gochecknoglobals
var propertyTypes = map[string]value.ObjectType{
	"property": value.ObjectTypeApartment,
	"pantry":   value.ObjectTypeStoragePantry,
	"parking":  value.ObjectTypeParkingSpot,
}

// ObjectType переводит код propertyType в канонический тип. Неизвестный код
// даёт ObjectTypeUnknown.
func ObjectType(propertyType string) value.ObjectType {
	return propertyTypes[propertyType]
}

// ParseHouse достаёт номер дома из названия вида "Дом №5". Если разделителя
// нет, разбирается вся строка. Нечисловой номер даёт entity.HouseUnknown.
func ParseHouse(houseName string) int {
	number := houseName
	if parts := strings.Split(houseName, houseDelimiter); len(parts) > 1 {
		number = parts[1]
	}

	house, err := strconv.Atoi(strings.TrimSpace(number))
	if err != nil {
		return entity.HouseUnknown
	}

	return house
}

// ParseRegisteredAt разбирает дату регистрации сделки вида "2025-03-12 04:38".
func ParseRegisteredAt(s string) (time.Time, error) {
	return time.Parse(registeredAtLayout, strings.TrimSpace(s)+registeredAtOffset)
}

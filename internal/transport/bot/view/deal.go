package view

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"dkp_bot/internal/domain/entity"
)

// DealCard выводит карточку сделки в том виде, в каком её видят менеджеры.
func DealCard(d entity.Deal) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Проект: %s\n", d.Project)
	fmt.Fprintf(&sb, "Дом № %s\n", House(d.House))
	fmt.Fprintf(&sb, "Тип объекта: %s\n", ObjectTypeLabel(d))
	fmt.Fprintf(&sb, "№ %d\n", d.Object)
	if d.ObjectType.HasFacing() {
		fmt.Fprintf(&sb, "Тип отделки: %s\n", d.Facing)
	}
	fmt.Fprintf(&sb, "Дата регистрации: %s\n", Date(d.CreatedOn))
	fmt.Fprintf(&sb, "Передать объект до: %s\n", Date(d.TransferDeadline()))

	return sb.String()
}

func NewDeal(d entity.Deal) string {
	return NewDealHeader + "\n" + DealCard(d)
}

func CompletedDeal(d entity.Deal) string {
	return CompletedDealHeader + "\n" + DealCard(d)
}

// House выводит номер дома или прочерк, если номер не разобран.
func House(house int) string {
	if house == entity.HouseUnknown {
		return "-"
	}
	return strconv.Itoa(house)
}

func ObjectTypeLabel(d entity.Deal) string {
	if label := d.ObjectType.Label(); label != "" {
		return label
	}
	return "не определён"
}

func Date(t time.Time) string {
	return t.Format(dateLayout)
}

func DateTime(t time.Time) string {
	return t.Format(dateTimeLayout)
}

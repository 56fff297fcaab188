package view

const (
	ChooseProject    = "Выберите проект"
	ChooseObjectType = "Выберите тип объекта"
	ChooseHouse      = "Выберите номер дома"
	ChooseObject     = "Выберите номер помещения"
	ObjectsFound     = "Найдены объекты с номерами:\n"
	UseButtons       = "Сделайте выбор кнопками"
	ObjectPattern    = "Шаблон: /номер помещения"
	NoObjects        = "Объектов не обнаружено"
	NoData           = "Нет данных"
	ReadError        = "Ошибка чтения данных"
	Restart          = "Чтобы начать сначала,\nнажмите /start"

	SyncStarted   = "Начат поиск новых сделок..."
	SyncInProcess = "Синхронизация уже идёт, попробуйте позже"
	SyncFailed    = "Синхронизация не выполнена, подробности в логах"
	NoNewDeals    = "Новых сделок не найдено"
	NoPassYet     = "Синхронизация ещё не запускалась"

	NewDealHeader       = "Новая продажа!"
	CompletedDealHeader = "Объект передан"

	dateLayout     = "02.01.2006"
	dateTimeLayout = "02.01.2006 15:04:05"
)

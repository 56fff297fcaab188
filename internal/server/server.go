package server

// Server объединяет HTTP-обработчики отдельных ресурсов.
type Server struct {
	DealServer
	SyncServer
}

func NewServer(
	dealServer DealServer,
	syncServer SyncServer,
) Server {
	return Server{
		DealServer: dealServer,
		SyncServer: syncServer,
	}
}

package ports

import websocketdto "carpool-safety/internal/safety-service/core/domain/websocket_dto"

type INotifyWebsocket interface {
	WriteToDriver(driverId string, msg websocketdto.Event)
}

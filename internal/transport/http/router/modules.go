package router

import (
	"ons-backend/internal/transport/http/ez"
	"ons-backend/internal/transport/http/handler"
)

// APIModule 挂在 /api 下的业务模块，按传入顺序挂载
type APIModule interface {
	Mount(e ez.EZ, g handler.Guards)
}

// AdminModule 挂在 /admin/v1 下，整组已要求 ADMIN
type AdminModule interface {
	Mount(e ez.EZ)
}

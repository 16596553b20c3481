package public

import "github.com/timestamp-store/internal/provider"

// Handler 用户侧接口处理器入口
// 说明：该处理器用于注册登录、购物车、结算、订单与钱包 API。
type Handler struct {
	*provider.Container
}

// New 创建用户侧处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

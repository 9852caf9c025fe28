package queue

import (
	"encoding/json"
	"fmt"

	"github.com/dujiao-next/promoengine/internal/constants"

	"github.com/hibiken/asynq"
)

// 任务类型
const (
	TaskCartExpire         = constants.TaskCartExpire
	TaskOrderTimeoutCancel = constants.TaskOrderTimeoutCancel
)

// CartExpirePayload 购物车到期释放优惠预占
type CartExpirePayload struct {
	CartID uint `json:"cart_id"`
}

// OrderTimeoutCancelPayload 未支付订单超时取消
type OrderTimeoutCancelPayload struct {
	OrderID uint `json:"order_id"`
}

// NewCartExpireTask 创建购物车过期任务
func NewCartExpireTask(payload CartExpirePayload) (*asynq.Task, error) {
	return newTask(TaskCartExpire, payload)
}

// NewOrderTimeoutCancelTask 创建订单超时取消任务
func NewOrderTimeoutCancelTask(payload OrderTimeoutCancelPayload) (*asynq.Task, error) {
	return newTask(TaskOrderTimeoutCancel, payload)
}

// Decode 解析任务载荷
func Decode[T any](task *asynq.Task) (T, error) {
	var payload T
	if task == nil {
		return payload, fmt.Errorf("decode payload: nil task")
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %w", task.Type(), err)
	}
	return payload, nil
}

func newTask(taskType string, payload interface{}) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", taskType, err)
	}
	return asynq.NewTask(taskType, body), nil
}

// taskID 同一对象同类任务只保留一个，重复投递视为成功
func taskID(taskType string, id uint) string {
	return fmt.Sprintf("%s:%d", taskType, id)
}

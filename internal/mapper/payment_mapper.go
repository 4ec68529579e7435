package mapper

import (
	"qnagen-be/internal/entity"
	"qnagen-be/internal/model"

	"gorm.io/datatypes"
)

type PaymentOrderMapper struct{}

func NewPaymentOrderMapper() *PaymentOrderMapper {
	return &PaymentOrderMapper{}
}

func (m *PaymentOrderMapper) ToEntity(o *model.PaymentOrder) *entity.PaymentOrder {
	if o == nil {
		return nil
	}
	return &entity.PaymentOrder{
		Id:                    o.Id,
		UserId:                o.UserId,
		Email:                 o.Email,
		PaymentStatus:         entity.PaymentStatus(o.PaymentStatus),
		Amount:                o.Amount,
		Currency:              o.Currency,
		Months:                o.Months,
		Credits:               o.Credits,
		SnapToken:             o.SnapToken,
		MidtransTransactionId: o.MidtransTransactionId,
		Notification:          []byte(o.Notification),
		PaidAt:                o.PaidAt,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
}

func (m *PaymentOrderMapper) ToModel(o *entity.PaymentOrder) *model.PaymentOrder {
	if o == nil {
		return nil
	}
	var notification datatypes.JSON
	if len(o.Notification) > 0 {
		notification = datatypes.JSON(o.Notification)
	}
	return &model.PaymentOrder{
		Id:                    o.Id,
		UserId:                o.UserId,
		Email:                 o.Email,
		PaymentStatus:         string(o.PaymentStatus),
		Amount:                o.Amount,
		Currency:              o.Currency,
		Months:                o.Months,
		Credits:               o.Credits,
		SnapToken:             o.SnapToken,
		MidtransTransactionId: o.MidtransTransactionId,
		Notification:          notification,
		PaidAt:                o.PaidAt,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
}

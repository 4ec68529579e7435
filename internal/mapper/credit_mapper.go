package mapper

import (
	"qnagen-be/internal/entity"
	"qnagen-be/internal/model"
)

type CreditTransactionMapper struct{}

func NewCreditTransactionMapper() *CreditTransactionMapper {
	return &CreditTransactionMapper{}
}

func (m *CreditTransactionMapper) ToEntity(t *model.CreditTransaction) *entity.CreditTransaction {
	if t == nil {
		return nil
	}
	return &entity.CreditTransaction{
		Id:              t.Id,
		UserId:          t.UserId,
		TransactionType: entity.CreditTransactionType(t.TransactionType),
		Amount:          t.Amount,
		BalanceAfter:    t.BalanceAfter,
		Reason:          t.Reason,
		RelatedId:       t.RelatedId,
		CreatedAt:       t.CreatedAt,
	}
}

func (m *CreditTransactionMapper) ToModel(t *entity.CreditTransaction) *model.CreditTransaction {
	if t == nil {
		return nil
	}
	return &model.CreditTransaction{
		Id:              t.Id,
		UserId:          t.UserId,
		TransactionType: string(t.TransactionType),
		Amount:          t.Amount,
		BalanceAfter:    t.BalanceAfter,
		Reason:          t.Reason,
		RelatedId:       t.RelatedId,
		CreatedAt:       t.CreatedAt,
	}
}

func (m *CreditTransactionMapper) ToEntities(ts []*model.CreditTransaction) []*entity.CreditTransaction {
	out := make([]*entity.CreditTransaction, len(ts))
	for i, t := range ts {
		out[i] = m.ToEntity(t)
	}
	return out
}

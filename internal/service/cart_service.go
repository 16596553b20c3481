package service

import (
	"fmt"
	"time"

	"github.com/timestamp-store/internal/logger"
	"github.com/timestamp-store/internal/models"
	"github.com/timestamp-store/internal/repository"

	"github.com/shopspring/decimal"
)

// CartService 购物车服务
type CartService struct {
	cartRepo    repository.CartRepository
	variantRepo repository.VariantRepository
	offers      *OfferService
	policy      CheckoutPolicy
	now         func() time.Time
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository, variantRepo repository.VariantRepository, offers *OfferService, policy CheckoutPolicy) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		variantRepo: variantRepo,
		offers:      offers,
		policy:      policy,
		now:         time.Now,
	}
}

// CartLine 购物车/结算行，价格实时计算
type CartLine struct {
	ItemID       uint                   `json:"item_id,omitempty"`
	ProductID    uint                   `json:"product_id"`
	VariantID    uint                   `json:"variant_id"`
	ProductName  string                 `json:"product_name"`
	Colour       string                 `json:"colour"`
	Quantity     int                    `json:"quantity"`
	Stock        int                    `json:"stock"`
	Available    bool                   `json:"available"`
	Quote        PriceQuote             `json:"quote"`
	LineTotal    decimal.Decimal        `json:"line_total"`
	LineDiscount decimal.Decimal        `json:"line_discount"`
	Problem      string                 `json:"problem,omitempty"`
	Product      *models.Product        `json:"-"`
	Variant      *models.ProductVariant `json:"-"`
}

// CartView 购物车视图
type CartView struct {
	CartID        uint            `json:"cart_id"`
	Lines         []CartLine      `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	OfferDiscount decimal.Decimal `json:"offer_discount"`
	ItemCount     int             `json:"item_count"`
}

// GetCart 获取购物车并按当前活动重新计价
func (s *CartService) GetCart(userID uint) (*CartView, error) {
	cart, err := s.cartRepo.GetOrCreateCart(userID)
	if err != nil {
		return nil, err
	}
	items, err := s.cartRepo.GetItems(cart.ID)
	if err != nil {
		return nil, err
	}
	today := s.now()
	view := &CartView{CartID: cart.ID, Lines: make([]CartLine, 0, len(items))}
	for i := range items {
		item := items[i]
		line := s.priceLine(item.Variant, item.Product, item.Quantity, today)
		line.ItemID = item.ID
		view.Lines = append(view.Lines, line)
	}
	view.Subtotal, view.OfferDiscount, view.ItemCount = sumLines(view.Lines)
	return view, nil
}

// AddItem 加入购物车，已有同规格行时累加数量
func (s *CartService) AddItem(userID, variantID uint, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	variant, err := s.loadPurchasableVariant(variantID)
	if err != nil {
		return nil, err
	}
	cart, err := s.cartRepo.GetOrCreateCart(userID)
	if err != nil {
		return nil, err
	}
	line, err := s.cartRepo.FindLine(cart.ID, variant.ProductID, variant.ID)
	if err != nil {
		return nil, err
	}
	if line == nil {
		line = &models.CartItem{CartID: cart.ID, ProductID: variant.ProductID, VariantID: variant.ID}
	}
	if err := s.checkQuantity(variant, line.Quantity+quantity); err != nil {
		return nil, err
	}
	line.Quantity += quantity
	line.Price = models.NewMoneyFromDecimal(s.offers.QuoteVariant(variant, s.now()).FinalPrice)
	if err := s.cartRepo.SaveItem(line); err != nil {
		return nil, normalizePersistenceError(err)
	}
	logger.Infow("cart_item_added", "user_id", userID, "variant_id", variant.ID, "quantity", line.Quantity)
	return s.GetCart(userID)
}

// UpdateQuantity 修改购物车行数量
func (s *CartService) UpdateQuantity(userID, itemID uint, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	cart, err := s.cartRepo.GetOrCreateCart(userID)
	if err != nil {
		return nil, err
	}
	item, err := s.cartRepo.GetItem(cart.ID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrCartItemNotFound
	}
	variant, err := s.loadPurchasableVariant(item.VariantID)
	if err != nil {
		return nil, err
	}
	if err := s.checkQuantity(variant, quantity); err != nil {
		return nil, err
	}
	item.Quantity = quantity
	if err := s.cartRepo.SaveItem(item); err != nil {
		return nil, err
	}
	return s.GetCart(userID)
}

// RemoveItem 删除购物车行
func (s *CartService) RemoveItem(userID, itemID uint) (*CartView, error) {
	cart, err := s.cartRepo.GetOrCreateCart(userID)
	if err != nil {
		return nil, err
	}
	item, err := s.cartRepo.GetItem(cart.ID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrCartItemNotFound
	}
	if err := s.cartRepo.DeleteItem(cart.ID, itemID); err != nil {
		return nil, err
	}
	return s.GetCart(userID)
}

// ValidateForCheckout 结算前校验，逐条列出不满足条件的行
func (s *CartService) ValidateForCheckout(view *CartView) error {
	if view == nil || len(view.Lines) == 0 {
		return ErrCartEmpty
	}
	var problems []string
	for _, line := range view.Lines {
		if line.Problem != "" {
			problems = append(problems, line.Problem)
		}
	}
	if len(problems) > 0 {
		return ErrCartValidationFailed.WithDetails(problems)
	}
	return nil
}

func (s *CartService) loadPurchasableVariant(variantID uint) (*models.ProductVariant, error) {
	variant, err := s.variantRepo.GetByID(variantID)
	if err != nil {
		return nil, err
	}
	if variant == nil || variant.Product == nil {
		return nil, ErrVariantNotFound
	}
	if !variant.IsListed || !variant.Product.IsAvailable() {
		return nil, ErrProductUnavailable
	}
	if variant.Stock <= 0 {
		return nil, ErrOutOfStock
	}
	return variant, nil
}

func (s *CartService) checkQuantity(variant *models.ProductVariant, quantity int) error {
	if quantity <= s.policy.QuantityCap(variant.Stock) {
		return nil
	}
	if quantity > s.policy.MaxQuantityPerProduct {
		return ErrQuantityLimitExceeded.WithMessagef("Maximum %d units allowed per product", s.policy.MaxQuantityPerProduct)
	}
	return ErrInsufficientStock.WithMessagef("Only %d units available in stock", variant.Stock)
}

// priceLine 按当前活动为一行计价并标注不可结算的原因
func (s *CartService) priceLine(variant *models.ProductVariant, product *models.Product, quantity int, today time.Time) CartLine {
	line := CartLine{Quantity: quantity, Product: product, Variant: variant}
	if variant == nil || product == nil {
		line.Problem = "An item in your cart is no longer available"
		line.Quote = ApplyPricing(decimal.Zero, decimal.Zero)
		return line
	}
	if variant.Product == nil {
		variant.Product = product
	}
	line.ProductID = product.ID
	line.VariantID = variant.ID
	line.ProductName = product.Name
	line.Colour = variant.Colour
	line.Stock = variant.Stock
	line.Available = variant.IsListed && product.IsAvailable()
	line.Quote = s.offers.QuoteVariant(variant, today)
	line.LineTotal = line.Quote.LineTotal(quantity)
	line.LineDiscount = line.Quote.LineDiscount(quantity)
	line.Problem = s.lineProblem(line)
	return line
}

func (s *CartService) lineProblem(line CartLine) string {
	label := fmt.Sprintf("%s (%s)", line.ProductName, line.Colour)
	switch {
	case !line.Available:
		return fmt.Sprintf("%s is currently unavailable", label)
	case line.Stock <= 0:
		return fmt.Sprintf("%s is out of stock", label)
	case line.Quantity < 1:
		return fmt.Sprintf("%s has an invalid quantity", label)
	case line.Quantity > line.Stock:
		return fmt.Sprintf("Only %d units of %s are available", line.Stock, label)
	case line.Quantity > s.policy.MaxQuantityPerProduct:
		return fmt.Sprintf("Maximum %d units allowed for %s", s.policy.MaxQuantityPerProduct, label)
	}
	return ""
}

func sumLines(lines []CartLine) (decimal.Decimal, decimal.Decimal, int) {
	subtotal, discount := decimal.Zero, decimal.Zero
	count := 0
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal)
		discount = discount.Add(line.LineDiscount)
		count += line.Quantity
	}
	return subtotal, discount, count
}

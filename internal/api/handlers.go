package api

import (
	"net/http"
	"strconv"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	"github.com/gin-gonic/gin"

	"github.com/gridexchange/gridex/x/exchange/types"
)

const defaultSwapTTL = time.Minute

// statusFor maps exchange errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errorsmod.IsOf(err, types.ErrNotFound):
		return http.StatusNotFound
	case errorsmod.IsOf(err, types.ErrUnauthorized):
		return http.StatusForbidden
	case errorsmod.IsOf(err, types.ErrBookExists, types.ErrPoolExists):
		return http.StatusConflict
	case errorsmod.IsOf(err,
		types.ErrInvalidAmount, types.ErrInvalidPath, types.ErrInvalidTokenPair):
		return http.StatusBadRequest
	case errorsmod.IsOf(err,
		types.ErrSlippageExceeded, types.ErrDeadlineExceeded, types.ErrNotFullyFilled):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) abortWithError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func parseAmount(raw string) (math.Int, bool) {
	amt, ok := math.NewIntFromString(raw)
	return amt, ok
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

type registerBookRequest struct {
	Base       string `json:"base" binding:"required"`
	Quote      string `json:"quote" binding:"required"`
	QuoteScale string `json:"quote_scale" binding:"required"`
}

func (s *Server) handleRegisterBook(c *gin.Context) {
	var req registerBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	scale, ok := parseAmount(req.QuoteScale)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quote_scale"})
		return
	}
	if err := s.keeper.RegisterBook(c.Request.Context(), req.Base, req.Quote, scale); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"pair": types.PairKey(req.Base, req.Quote)})
}

func (s *Server) handleGetBook(c *gin.Context) {
	book, err := s.keeper.GetBook(c.Request.Context(), c.Param("base"), c.Param("quote"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"base":        book.Base,
		"quote":       book.Quote,
		"quote_scale": book.QuoteScale,
		"orders":      len(book.Orders),
	})
}

func (s *Server) handleGetBookLevels(c *gin.Context) {
	isBuy := c.DefaultQuery("side", "buy") == "buy"
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	levels, err := s.keeper.GetBookLevels(c.Request.Context(), c.Param("base"), c.Param("quote"), isBuy, limit)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"levels": levels})
}

type createPoolRequest struct {
	Creator      string `json:"creator" binding:"required"`
	Base         string `json:"base" binding:"required"`
	Quote        string `json:"quote" binding:"required"`
	ReserveBase  string `json:"reserve_base" binding:"required"`
	ReserveQuote string `json:"reserve_quote" binding:"required"`
}

func (s *Server) handleCreatePool(c *gin.Context) {
	var req createPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rBase, okB := parseAmount(req.ReserveBase)
	rQuote, okQ := parseAmount(req.ReserveQuote)
	if !okB || !okQ {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reserve amount"})
		return
	}
	if err := s.keeper.CreatePool(c.Request.Context(), req.Creator, req.Base, req.Quote, rBase, rQuote); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"pair": types.PairKey(req.Base, req.Quote)})
}

func (s *Server) handleGetPool(c *gin.Context) {
	pool, err := s.keeper.GetPool(c.Request.Context(), c.Param("base"), c.Param("quote"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pool)
}

type placeOrderRequest struct {
	Account   string `json:"account" binding:"required"`
	TokenFrom string `json:"token_from" binding:"required"`
	TokenTo   string `json:"token_to" binding:"required"`
	Price     string `json:"price" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
}

func (r *placeOrderRequest) parsed() (price, amount math.Int, ok bool) {
	price, okP := parseAmount(r.Price)
	amount, okA := parseAmount(r.Amount)
	return price, amount, okP && okA
}

func (s *Server) handlePlaceLimitOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	price, amount, ok := req.parsed()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price or amount"})
		return
	}
	id, err := s.keeper.DealLimitOrder(c.Request.Context(), req.TokenFrom, req.TokenTo, req.Account, price, amount)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order_id": id, "resting": id != 0})
}

func (s *Server) handlePlaceMarketOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	price, amount, ok := req.parsed()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price or amount"})
		return
	}
	unfilled, err := s.keeper.DealMarketOrder(c.Request.Context(), req.TokenFrom, req.TokenTo, req.Account, price, amount)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unfilled": unfilled})
}

func (s *Server) handleGetOrdersByMaker(c *gin.Context) {
	base, quote, maker := c.Query("base"), c.Query("quote"), c.Query("maker")
	if base == "" || quote == "" || maker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "base, quote and maker are required"})
		return
	}
	orders, err := s.keeper.OrdersByMaker(c.Request.Context(), base, quote, maker)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) handleCancelOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	caller := c.Query("caller")
	if caller == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "caller is required"})
		return
	}
	isBuy := c.DefaultQuery("side", "buy") == "buy"
	if err := s.keeper.CancelOrder(c.Request.Context(), c.Param("base"), c.Param("quote"), id, isBuy, caller); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": id})
}

func (s *Server) handleGetMarketPrice(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to are required"})
		return
	}
	price, err := s.keeper.GetMarketPrice(c.Request.Context(), from, to)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"price": price})
}

type quoteRequest struct {
	Path      []string `json:"path" binding:"required"`
	AmountIn  string   `json:"amount_in"`
	AmountOut string   `json:"amount_out"`
}

func (s *Server) handleQuote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch {
	case req.AmountIn != "":
		amountIn, ok := parseAmount(req.AmountIn)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount_in"})
			return
		}
		out, err := s.keeper.QuoteExactInput(c.Request.Context(), req.Path, amountIn)
		if err != nil {
			s.abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"amount_in": amountIn, "amount_out": out})
	case req.AmountOut != "":
		amountOut, ok := parseAmount(req.AmountOut)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount_out"})
			return
		}
		in, err := s.keeper.QuoteExactOutput(c.Request.Context(), req.Path, amountOut)
		if err != nil {
			s.abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"amount_in": in, "amount_out": amountOut})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "one of amount_in or amount_out is required"})
	}
}

type swapRequest struct {
	Trader       string   `json:"trader" binding:"required"`
	Path         []string `json:"path" binding:"required"`
	AmountIn     string   `json:"amount_in"`
	MinAmountOut string   `json:"min_amount_out"`
	AmountOut    string   `json:"amount_out"`
	MaxAmountIn  string   `json:"max_amount_in"`
	Deadline     string   `json:"deadline"` // RFC 3339; defaults to one minute out
}

func (s *Server) handleSwap(c *gin.Context) {
	var req swapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	deadline := time.Now().Add(defaultSwapTTL)
	if req.Deadline != "" {
		parsed, err := time.Parse(time.RFC3339, req.Deadline)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deadline"})
			return
		}
		deadline = parsed
	}

	switch {
	case req.AmountIn != "":
		amountIn, ok := parseAmount(req.AmountIn)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount_in"})
			return
		}
		minOut := math.ZeroInt()
		if req.MinAmountOut != "" {
			if minOut, ok = parseAmount(req.MinAmountOut); !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_amount_out"})
				return
			}
		}
		out, err := s.keeper.SwapExactInput(c.Request.Context(), req.Trader, req.Path, amountIn, minOut, deadline)
		if err != nil {
			s.abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"amount_in": amountIn, "amount_out": out})
	case req.AmountOut != "":
		amountOut, ok := parseAmount(req.AmountOut)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount_out"})
			return
		}
		if req.MaxAmountIn == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_amount_in is required for exact-output swaps"})
			return
		}
		maxIn, ok := parseAmount(req.MaxAmountIn)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_amount_in"})
			return
		}
		in, err := s.keeper.SwapExactOutput(c.Request.Context(), req.Trader, req.Path, amountOut, maxIn, deadline)
		if err != nil {
			s.abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"amount_in": in, "amount_out": amountOut})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "one of amount_in or amount_out is required"})
	}
}

func (s *Server) handleGetBalances(c *gin.Context) {
	address := c.Param("address")
	c.JSON(http.StatusOK, gin.H{
		"address":  address,
		"balances": s.bank.Balances(address),
	})
}

type mintRequest struct {
	Token  string `json:"token" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// handleMint credits test funds to an account. Development convenience,
// in the spirit of a faucet.
func (s *Server) handleMint(c *gin.Context) {
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok || !amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	address := c.Param("address")
	s.bank.Mint(address, req.Token, amount)
	c.JSON(http.StatusOK, gin.H{
		"address": address,
		"token":   req.Token,
		"balance": s.bank.Balance(address, req.Token),
	})
}

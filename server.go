package main

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rohtashsarraf/jewelbill_backend/config"
	"github.com/rohtashsarraf/jewelbill_backend/middlewares"
	"github.com/rohtashsarraf/jewelbill_backend/models"
	"github.com/rohtashsarraf/jewelbill_backend/models/reports"
	"github.com/rohtashsarraf/jewelbill_backend/utils"
	"github.com/shopspring/decimal"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedis()
	models.MigrateTable()

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Auth-User", "X-Correlation-Id"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))
	router.Use(middlewares.CorrelationMiddleware())
	router.Use(middlewares.ActorMiddleware())
	router.Use(middlewares.RequestLogMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	api.GET("/rates", getRatesHandler)
	api.GET("/rates/:kind", getRateHandler)
	api.GET("/rates/:kind/history", getRateHistoryHandler)
	api.POST("/rates/:kind", setRateHandler)

	api.GET("/customers", listCustomersHandler)
	api.POST("/customers", createCustomerHandler)
	api.GET("/customers/:id", getCustomerHandler)
	api.PUT("/customers/:id", updateCustomerHandler)
	api.DELETE("/customers/:id", deleteCustomerHandler)

	api.GET("/bills", listBillsHandler)
	api.POST("/bills", createBillHandler)
	api.GET("/bills/:id", getBillHandler)
	api.PUT("/bills/:id", updateBillHandler)
	api.DELETE("/bills/:id", deleteBillHandler)
	api.POST("/bills/:id/recompute", recomputeBillHandler)
	api.PUT("/bills/:id/items", replaceBillItemsHandler)
	api.PUT("/bills/:id/exchanges", replaceExchangesHandler)
	api.GET("/bills/:id/payments", listPaymentsHandler)
	api.POST("/bills/:id/payments", createPaymentHandler)

	api.GET("/reports/dashboard", dashboardHandler)
	api.GET("/reports/summary", billSummaryHandler)
	api.GET("/reports/bills.xlsx", exportBillsHandler)

	if err := router.Run(":" + port); err != nil {
		config.LogError(config.GetLogger(), "server.go", "main", "router.Run", nil, err)
		os.Exit(1)
	}
}

// respondError maps the engine's error taxonomy onto HTTP statuses with
// enough context for a user-facing message.
func respondError(c *gin.Context, err error) {
	var validationErr *utils.ValidationError
	var overpaymentErr *utils.OverpaymentError
	var concurrencyErr *utils.ConcurrencyError
	var rateNotSetErr *utils.RateNotSetError
	var bindingErrs validator.ValidationErrors

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Error(),
			"field": validationErr.Field,
		})
	case errors.As(err, &bindingErrs):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"fields": utils.ProcessValidationErrors(bindingErrs),
		})
	case errors.As(err, &overpaymentErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     overpaymentErr.Error(),
			"attempted": overpaymentErr.Attempted,
			"remaining": overpaymentErr.Remaining,
		})
	case errors.As(err, &concurrencyErr):
		c.JSON(http.StatusConflict, gin.H{"error": concurrencyErr.Error()})
	case errors.As(err, &rateNotSetErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": rateNotSetErr.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		config.LogError(config.GetLogger(), "server.go", "respondError", c.FullPath(), nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

/* rates */

func getRatesHandler(c *gin.Context) {
	ctx := c.Request.Context()
	response := gin.H{}
	for _, kind := range []models.MetalKind{models.MetalKindGold, models.MetalKindSilver, models.MetalKindBar} {
		snapshot, err := models.CurrentRate(ctx, kind)
		if err != nil {
			var rateNotSetErr *utils.RateNotSetError
			if errors.As(err, &rateNotSetErr) {
				response[string(kind)] = nil
				continue
			}
			respondError(c, err)
			return
		}
		response[string(kind)] = snapshot
	}
	c.JSON(http.StatusOK, response)
}

func getRateHandler(c *gin.Context) {
	snapshot, err := models.CurrentRate(c.Request.Context(), models.MetalKind(c.Param("kind")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func getRateHistoryHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	history, err := models.GetRateHistory(c.Request.Context(), models.MetalKind(c.Param("kind")), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func setRateHandler(c *gin.Context) {
	var input struct {
		RatePerGram decimal.Decimal `json:"rate_per_gram" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	actor, _ := utils.GetUsernameFromContext(ctx)
	snapshot, err := models.SetActiveRate(ctx, models.MetalKind(c.Param("kind")), input.RatePerGram, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snapshot)
}

/* customers */

func listCustomersHandler(c *gin.Context) {
	var name *string
	if q := c.Query("name"); q != "" {
		name = &q
	}
	customers, err := models.GetCustomers(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func createCustomerHandler(c *gin.Context) {
	var input models.NewCustomer
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	customer, err := models.CreateCustomer(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func getCustomerHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	customer, err := models.GetCustomer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func updateCustomerHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewCustomer
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	customer, err := models.UpdateCustomer(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func deleteCustomerHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	customer, err := models.DeleteCustomer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

/* bills */

func listBillsHandler(c *gin.Context) {
	filter := models.BillFilter{
		Search: c.Query("search"),
		Status: models.BillStatus(c.Query("status")),
	}
	if from, err := time.Parse("2006-01-02", c.Query("date_from")); err == nil {
		filter.DateFrom = &from
	}
	if to, err := time.Parse("2006-01-02", c.Query("date_to")); err == nil {
		filter.DateTo = &to
	}
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))

	bills, err := models.GetBills(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bills)
}

func createBillHandler(c *gin.Context) {
	var input models.NewBill
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	bill, err := models.CreateBill(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bill)
}

func getBillHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	bill, err := models.GetBill(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

func updateBillHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewBill
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	bill, err := models.UpdateBill(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

func deleteBillHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	bill, err := models.DeleteBill(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

func recomputeBillHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	bill, err := models.RecomputeBill(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

func replaceBillItemsHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input []models.NewBillItem
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	bill, err := models.ReplaceBillItems(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

func replaceExchangesHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input []models.NewOldMetalExchange
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	bill, err := models.ReplaceOldMetalExchanges(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

/* payments */

func listPaymentsHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	payments, err := models.GetPayments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func createPaymentHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewPayment
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	bill, err := models.CreatePayment(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bill)
}

/* reports */

func dashboardHandler(c *gin.Context) {
	dashboard, err := reports.GetDashboard(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func reportRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := now
	if q := c.Query("from"); q != "" {
		parsed, err := time.Parse("2006-01-02", q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return from, to, false
		}
		from = parsed
	}
	if q := c.Query("to"); q != "" {
		parsed, err := time.Parse("2006-01-02", q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
			return from, to, false
		}
		to = parsed
	}
	return from, to, true
}

func billSummaryHandler(c *gin.Context) {
	from, to, ok := reportRange(c)
	if !ok {
		return
	}
	summary, err := reports.GetBillSummary(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func exportBillsHandler(c *gin.Context) {
	from, to, ok := reportRange(c)
	if !ok {
		return
	}
	f, err := reports.ExportBillsExcel(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=bills.xlsx")
	if err := f.Write(c.Writer); err != nil {
		config.LogError(config.GetLogger(), "server.go", "exportBillsHandler", "f.Write", nil, err)
	}
}

package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/CodeAndHammer/eikensim/internal/models"
)

const msgQuestionNotFound = "Question not found."

func ListQuestionsHandler(app *models.App, c *gin.Context) {
	c.JSON(http.StatusOK, models.QuestionList{Questions: app.Questions.All()})
}

func RandomQuestionHandler(app *models.App, c *gin.Context) {
	c.JSON(http.StatusOK, app.Questions.Random(c.Request.Context()))
}

func GetQuestionHandler(app *models.App, c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusNotFound, msgQuestionNotFound)
		return
	}
	q, err := app.Questions.Get(id)
	if err != nil {
		abortWithError(c, http.StatusNotFound, msgQuestionNotFound)
		return
	}
	c.JSON(http.StatusOK, q)
}

// ShareHandler turns the c/o/v/g query parameters of a share link into a
// clamped score summary.
func ShareHandler(_ *models.App, c *gin.Context) {
	s := models.ShareSummary{
		Content:       clampScore(c.Query("c")),
		Organization:  clampScore(c.Query("o")),
		Vocabulary:    clampScore(c.Query("v")),
		Grammar:       clampScore(c.Query("g")),
		MaxTotal:      models.MaxTotal,
		PassThreshold: models.PassThreshold,
	}
	s.Total = s.Content + s.Organization + s.Vocabulary + s.Grammar
	s.Passed = s.Total >= models.PassThreshold
	c.JSON(http.StatusOK, s)
}

func clampScore(raw string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return int(math.Min(models.MaxSubScore, math.Max(0, math.Round(f))))
}

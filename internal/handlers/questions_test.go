package handlers_test

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/CodeAndHammer/eikensim/internal/handlers"
	"github.com/CodeAndHammer/eikensim/internal/models"
	"github.com/CodeAndHammer/eikensim/internal/questions"
)

var _ = Describe("Question endpoints", func() {
	var router *gin.Engine

	BeforeEach(func() {
		router = newTestRouter(newTestApp(&fakeScorer{}, 0.5))
	})

	It("lists every question", func() {
		w := get(router, "/api/questions")
		Expect(w.Code).To(Equal(http.StatusOK))

		var list models.QuestionList
		Expect(json.Unmarshal(w.Body.Bytes(), &list)).To(Succeed())
		Expect(list.Questions).To(HaveLen(3))
		Expect(list.Questions[0].ID).To(Equal(1))
		Expect(list.Questions[0].Paragraphs).NotTo(BeEmpty())
	})

	It("returns a single question by id", func() {
		w := get(router, "/api/questions/2")
		Expect(w.Code).To(Equal(http.StatusOK))

		var q questions.Question
		Expect(json.Unmarshal(w.Body.Bytes(), &q)).To(Succeed())
		Expect(q.ID).To(Equal(2))
	})

	DescribeTable("answers 404 for unknown ids",
		func(path string) {
			Expect(get(router, path).Code).To(Equal(http.StatusNotFound))
		},
		Entry("out of range", "/api/questions/42"),
		Entry("not a number", "/api/questions/abc"),
	)

	It("returns a random known question", func() {
		w := get(router, "/api/questions/random")
		Expect(w.Code).To(Equal(http.StatusOK))

		var q questions.Question
		Expect(json.Unmarshal(w.Body.Bytes(), &q)).To(Succeed())
		Expect(q.ID).To(BeNumerically(">=", 1))
		Expect(q.ID).To(BeNumerically("<=", 3))
	})
})

var _ = Describe("ShareHandler", func() {
	var router *gin.Engine

	BeforeEach(func() {
		router = newTestRouter(newTestApp(&fakeScorer{}, 0.5))
	})

	DescribeTable("clamps scores from the query string",
		func(query string, want models.ShareSummary) {
			w := get(router, "/api/share"+query)
			Expect(w.Code).To(Equal(http.StatusOK))

			var got models.ShareSummary
			Expect(json.Unmarshal(w.Body.Bytes(), &got)).To(Succeed())
			want.MaxTotal = 32
			want.PassThreshold = 24
			Expect(got).To(Equal(want))
		},
		Entry("passing scores", "?c=8&o=6&v=4&g=6",
			models.ShareSummary{Content: 8, Organization: 6, Vocabulary: 4, Grammar: 6, Total: 24, Passed: true}),
		Entry("out of range and fractional", "?c=12&o=-3&v=3.6&g=2.4",
			models.ShareSummary{Content: 8, Organization: 0, Vocabulary: 4, Grammar: 2, Total: 14}),
		Entry("garbage and missing", "?c=abc&o=NaN",
			models.ShareSummary{}),
	)
})

var _ = Describe("HealthzHandler", func() {
	It("reports status and component counts", func() {
		router := newTestRouter(newTestApp(&fakeScorer{}, 0.5))
		w := get(router, "/healthz")
		Expect(w.Code).To(Equal(http.StatusOK))

		var body map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
		Expect(body["status"]).To(Equal("ok"))
		Expect(body["questions_loaded"]).To(BeNumerically("==", 3))
		Expect(body["daily_quota"]).To(BeNumerically("==", testMaxDaily))
		Expect(body["active_quota_records"]).To(BeNumerically("==", 0))
	})
})

var _ = Describe("FormatUptime", func() {
	DescribeTable("formats durations for humans",
		func(d time.Duration, want string) {
			Expect(handlers.FormatUptime(d)).To(Equal(want))
		},
		Entry("seconds", 5*time.Second, "5 seconds"),
		Entry("one second", time.Second, "1 second"),
		Entry("minutes", 65*time.Second, "1 minute, 5 seconds"),
		Entry("whole minute", 60*time.Second, "1 minute, 0 seconds"),
		Entry("hours", 3665*time.Second, "1 hour, 1 minute, 5 seconds"),
		Entry("whole hour", 3600*time.Second, "1 hour, 0 minutes, 0 seconds"),
	)
})

package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/CodeAndHammer/eikensim/internal/handlers"
	"github.com/CodeAndHammer/eikensim/internal/models"
	"github.com/CodeAndHammer/eikensim/internal/scorer"
)

func scoreBody(fields map[string]any) string {
	b, err := json.Marshal(fields)
	Expect(err).NotTo(HaveOccurred())
	return string(b)
}

func decodeResult(w *httptest.ResponseRecorder) models.ScoreResult {
	var res models.ScoreResult
	Expect(json.Unmarshal(w.Body.Bytes(), &res)).To(Succeed())
	return res
}

func decodeError(w *httptest.ResponseRecorder) string {
	var res models.ErrorResponse
	Expect(json.Unmarshal(w.Body.Bytes(), &res)).To(Succeed())
	return res.Error
}

var _ = Describe("ScoreHandler", func() {
	var (
		router *gin.Engine
		sc     *fakeScorer
	)

	BeforeEach(func() {
		sc = &fakeScorer{result: scorer.Result{
			Grammar:    6,
			Feedback:   "Solid grammar.",
			FancyWords: []string{"however"},
		}}
		router = newTestRouter(newTestApp(sc, 0.99))
	})

	Describe("standard path", func() {
		It("grades a 100-word answer with three lexicon hits", func() {
			answer := essay(100, "however", "however", "however")
			w := postScore(router, scoreBody(map[string]any{"answer": answer}))

			Expect(w.Code).To(Equal(http.StatusOK))
			res := decodeResult(w)
			Expect(res.WordCount).To(Equal(100))
			Expect(res.Content).To(Equal(8))
			Expect(res.Vocabulary).To(Equal(4))
			Expect(res.Grammar).To(Equal(6))
			Expect(res.Organization).To(Equal(res.Grammar))
			Expect(res.Total).To(Equal(24))
			Expect(res.Passed).To(BeTrue())
			Expect(res.Serious).To(BeFalse())
			Expect(res.ZeroReason).To(BeEmpty())
			Expect(res.Feedback).To(HavePrefix("Solid grammar.\n"))
			Expect(res.Feedback).To(ContainSubstring(`"however"×3`))
			Expect(res.Feedback).To(ContainSubstring("→ 4/8"))
			Expect(sc.calls).To(Equal(1))
			Expect(sc.modes).To(Equal([]bool{false}))
		})

		It("counts the model's candidates against the text, not the model's claims", func() {
			sc.result.FancyWords = []string{"however", "paradigm", "HOWEVER"}
			answer := essay(101, "however,", "However!")
			res := decodeResult(postScore(router, scoreBody(map[string]any{"answer": answer})))

			Expect(res.Content).To(Equal(7))
			Expect(res.Vocabulary).To(Equal(2))
			Expect(res.Feedback).To(ContainSubstring(`"however"×2`))
			Expect(res.Feedback).NotTo(ContainSubstring("paradigm"))
		})

		It("falls back to the built-in lexicon when the model proposes nothing", func() {
			sc.result = scorer.Result{Grammar: 3}
			answer := essay(100, "moreover", "thereby", "whereas", "however", "however", "however")
			res := decodeResult(postScore(router, scoreBody(map[string]any{"answer": answer})))

			Expect(res.Vocabulary).To(Equal(6))
			Expect(res.Feedback).To(HavePrefix("Vocabulary: 6 advanced words detected"))
		})

		It("zeroes a 60-word answer without calling the scorer", func() {
			w := postScore(router, scoreBody(map[string]any{"answer": essay(60)}))

			Expect(w.Code).To(Equal(http.StatusOK))
			res := decodeResult(w)
			Expect(res.WordCount).To(Equal(60))
			Expect([]int{res.Content, res.Organization, res.Vocabulary, res.Grammar, res.Total}).To(Equal([]int{0, 0, 0, 0, 0}))
			Expect(res.Passed).To(BeFalse())
			Expect(res.Feedback).To(ContainSubstring("Detected words: 60"))
			Expect(res.ZeroReason).To(Equal(res.Feedback))
			Expect(sc.calls).To(BeZero())
		})

		It("explains an in-band probabilistic failure", func() {
			router = newTestRouter(newTestApp(sc, 0))
			res := decodeResult(postScore(router, scoreBody(map[string]any{"answer": essay(95)})))

			Expect(res.Total).To(BeZero())
			Expect(res.WordCount).To(Equal(95))
			Expect(res.Feedback).To(ContainSubstring("(95 words)"))
			Expect(res.Feedback).To(ContainSubstring("probabilistic"))
			Expect(sc.calls).To(BeZero())
		})

		It("passes the centre of the band even on the lowest draw", func() {
			router = newTestRouter(newTestApp(sc, 0))
			res := decodeResult(postScore(router, scoreBody(map[string]any{"answer": essay(100)})))

			Expect(res.ZeroReason).To(BeEmpty())
			Expect(sc.calls).To(Equal(1))
		})
	})

	Describe("serious path", func() {
		It("short-circuits below the minimum word count", func() {
			w := postScore(router, scoreBody(map[string]any{"answer": essay(10), "serious": true}))

			Expect(w.Code).To(Equal(http.StatusOK))
			res := decodeResult(w)
			Expect(res.Serious).To(BeTrue())
			Expect(res.WordCount).To(Equal(10))
			Expect(res.Total).To(BeZero())
			Expect(res.Feedback).To(Equal(handlers.MsgSeriousTooShort))
			Expect(sc.calls).To(BeZero())
		})

		It("maps the four model scores directly and skips the gate", func() {
			sc.result = scorer.Result{Content: 5, Organization: 4, Vocabulary: 3, Grammar: 2, Feedback: "Real feedback."}
			res := decodeResult(postScore(router, scoreBody(map[string]any{"answer": essay(30), "serious": true})))

			Expect(res.Serious).To(BeTrue())
			Expect([]int{res.Content, res.Organization, res.Vocabulary, res.Grammar}).To(Equal([]int{5, 4, 3, 2}))
			Expect(res.Total).To(Equal(14))
			Expect(res.Feedback).To(Equal("Real feedback."))
			Expect(sc.modes).To(Equal([]bool{true}))
		})
	})

	Describe("upstream failures", func() {
		It("answers 503 with Retry-After when the model is rate limited", func() {
			sc.err = &scorer.UpstreamError{StatusCode: http.StatusTooManyRequests, Err: errors.New("quota")}
			w := postScore(router, scoreBody(map[string]any{"answer": essay(100)}))

			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(w.Header().Get("Retry-After")).To(Equal("60"))
			Expect(decodeError(w)).To(Equal(handlers.MsgUpstreamBusy))
			Expect(w.Body.String()).NotTo(ContainSubstring("quota"))
		})

		It("returns the degraded result from the scorer as a normal response", func() {
			sc.result = scorer.Fallback(false)
			res := decodeResult(postScore(router, scoreBody(map[string]any{"answer": essay(100)})))

			Expect(res.Grammar).To(BeZero())
			Expect(res.Feedback).To(HavePrefix(scorer.FallbackFeedback))
		})
	})

	Describe("daily quota", func() {
		It("denies the submission after the daily maximum", func() {
			body := scoreBody(map[string]any{"answer": essay(60)})
			for i := 1; i <= testMaxDaily; i++ {
				w := postScore(router, body)
				Expect(w.Code).To(Equal(http.StatusOK))
				Expect(decodeResult(w).Remaining).To(Equal(testMaxDaily - i))
			}

			w := postScore(router, body)
			Expect(w.Code).To(Equal(http.StatusTooManyRequests))
			Expect(decodeError(w)).To(Equal(handlers.MsgQuotaExceeded))
			Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal("0"))
		})

		It("sets a strict, http-only quota cookie", func() {
			w := postScore(router, scoreBody(map[string]any{"answer": essay(60)}))

			var found *http.Cookie
			for _, ck := range w.Result().Cookies() {
				if ck.Name == "eiken_sim" {
					found = ck
				}
			}
			Expect(found).NotTo(BeNil())
			Expect(found.HttpOnly).To(BeTrue())
			Expect(found.SameSite).To(Equal(http.SameSiteStrictMode))
			Expect(found.MaxAge).To(Equal(86400))
			Expect(found.Value).NotTo(BeEmpty())
		})

		It("does not spend quota on rejected input", func() {
			Expect(postScore(router, `{"answer": ""}`).Code).To(Equal(http.StatusBadRequest))

			w := postScore(router, scoreBody(map[string]any{"answer": essay(60)}))
			Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal("2"))
		})
	})

	Describe("validation", func() {
		withHeader := func(key, value string) func(*http.Request) {
			return func(r *http.Request) { r.Header.Set(key, value) }
		}

		It("accepts a same-origin request", func() {
			w := postScore(router, scoreBody(map[string]any{"answer": essay(60)}), withHeader("Origin", "http://example.com"))
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("rejects a foreign origin", func() {
			w := postScore(router, scoreBody(map[string]any{"answer": essay(60)}), withHeader("Origin", "https://evil.example"))
			Expect(w.Code).To(Equal(http.StatusForbidden))
		})

		It("rejects a non-JSON content type", func() {
			w := postScore(router, scoreBody(map[string]any{"answer": essay(60)}), withHeader("Content-Type", "text/plain"))
			Expect(w.Code).To(Equal(http.StatusUnsupportedMediaType))
		})

		It("accepts a JSON content type with parameters", func() {
			w := postScore(router, scoreBody(map[string]any{"answer": essay(60)}), withHeader("Content-Type", "Application/JSON; charset=utf-8"))
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("rejects an oversized body", func() {
			w := postScore(router, scoreBody(map[string]any{"answer": strings.Repeat("a ", handlers.MaxBodyBytes)}))
			Expect(w.Code).To(Equal(http.StatusRequestEntityTooLarge))
		})

		DescribeTable("rejects invalid payloads",
			func(body string, status int) {
				w := postScore(router, body)
				Expect(w.Code).To(Equal(status))
				Expect(decodeError(w)).NotTo(BeEmpty())
				Expect(sc.calls).To(BeZero())
			},
			Entry("malformed JSON", `{"answer":`, http.StatusBadRequest),
			Entry("array body", `["answer"]`, http.StatusBadRequest),
			Entry("null body", `null`, http.StatusBadRequest),
			Entry("missing answer", `{}`, http.StatusBadRequest),
			Entry("numeric answer", `{"answer": 5}`, http.StatusBadRequest),
			Entry("null answer", `{"answer": null}`, http.StatusBadRequest),
			Entry("blank answer", `{"answer": "   "}`, http.StatusBadRequest),
			Entry("only null bytes", `{"answer": " \u0000\u0000 "}`, http.StatusBadRequest),
			Entry("answer too long", `{"answer": "`+strings.Repeat("b", handlers.MaxAnswerChars+1)+`"}`, http.StatusRequestEntityTooLarge),
			Entry("string serious flag", `{"answer": "hi", "serious": "yes"}`, http.StatusBadRequest),
			Entry("null serious flag", `{"answer": "hi", "serious": null}`, http.StatusBadRequest),
			Entry("string question id", `{"answer": "hi", "questionId": "1"}`, http.StatusBadRequest),
			Entry("fractional question id", `{"answer": "hi", "questionId": 1.5}`, http.StatusBadRequest),
			Entry("unknown question id", `{"answer": "hi", "questionId": 99}`, http.StatusBadRequest),
		)

		It("accepts a known question id", func() {
			w := postScore(router, scoreBody(map[string]any{"answer": essay(60), "questionId": 2}))
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("strips null bytes before counting words", func() {
			w := postScore(router, scoreBody(map[string]any{"answer": "\x00" + essay(60) + "\x00"}))
			Expect(decodeResult(w).WordCount).To(Equal(60))
		})
	})
})

var _ = Describe("ContentScore", func() {
	DescribeTable("loses one point per word from the target",
		func(words, want int) {
			Expect(handlers.ContentScore(words)).To(Equal(want))
		},
		Entry("exact target", 100, 8),
		Entry("one under", 99, 7),
		Entry("five over", 105, 3),
		Entry("band edge", 90, 0),
		Entry("far away", 200, 0),
	)
})

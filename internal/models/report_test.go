package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrade_SingleLetter(t *testing.T) {
	key := NewAnswerKey("B")
	for _, v := range []Verdict{VerdictA, VerdictB, VerdictC, VerdictD, VerdictUnknown} {
		want := ResultIncorrect
		if v == VerdictB {
			want = ResultCorrect
		}
		assert.Equal(t, want, Grade(v, key), "verdict %s", v)
	}
}

func TestGrade_CaseInsensitive(t *testing.T) {
	assert.Equal(t, ResultCorrect, Grade(Verdict("c"), NewAnswerKey(" c ")))
}

func TestGrade_MultiLetterAlwaysIncorrect(t *testing.T) {
	key := NewAnswerKey("A,B")
	require.Equal(t, []string{"A", "B"}, key.Letters)
	for _, v := range []Verdict{VerdictA, VerdictB, VerdictC, VerdictD, VerdictUnknown} {
		assert.Equal(t, ResultIncorrect, Grade(v, key), "verdict %s", v)
	}
}

func TestNewAggregateReport_ZeroQuestions(t *testing.T) {
	report := NewAggregateReport(nil, 0, 0)
	assert.Equal(t, 0.0, report.Accuracy)
	assert.NotNil(t, report.Videos)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_questions":0,"correct_count":0,"accuracy":0,"videos":[]}`, string(data))
}

func TestNewAggregateReport_Accuracy(t *testing.T) {
	report := NewAggregateReport([]VideoResult{{VideoPath: "a.mp4"}}, 4, 3)
	assert.InDelta(t, 75.0, report.Accuracy, 1e-9)
}

func TestAnswerKey_UnmarshalForms(t *testing.T) {
	var q QuestionSpec
	require.NoError(t, json.Unmarshal([]byte(`{"question":"q","options":{"A":"x"},"correct_answer":"a, b"}`), &q))
	assert.Equal(t, "a, b", q.CorrectAnswer.Raw)
	assert.Equal(t, []string{"A", "B"}, q.CorrectAnswer.Letters)

	require.NoError(t, json.Unmarshal([]byte(`{"correct_answer":["C"]}`), &q))
	assert.Equal(t, "C", q.CorrectAnswer.Raw)

	require.NoError(t, json.Unmarshal([]byte(`{"correct_answer":null}`), &q))
	assert.Equal(t, "", q.CorrectAnswer.Raw)

	assert.Error(t, json.Unmarshal([]byte(`{"correct_answer":42}`), &q))
}

func TestQuestionSpec_Complete(t *testing.T) {
	full := QuestionSpec{Question: "q", Options: map[string]string{"A": "x"}, CorrectAnswer: NewAnswerKey("A")}
	assert.True(t, full.Complete())

	noOptions := full
	noOptions.Options = nil
	assert.False(t, noOptions.Complete())

	noAnswer := full
	noAnswer.CorrectAnswer = AnswerKey{}
	assert.False(t, noAnswer.Complete())

	noQuestion := full
	noQuestion.Question = ""
	assert.False(t, noQuestion.Complete())
}

func TestQuestionSpec_OptionOrDefault(t *testing.T) {
	q := QuestionSpec{Options: map[string]string{"A": "cat"}}
	assert.Equal(t, "cat", q.OptionOrDefault("A"))
	assert.Equal(t, "Not Provided", q.OptionOrDefault("D"))
}

func TestOptionSet_UnmarshalScalars(t *testing.T) {
	var q QuestionSpec
	require.NoError(t, json.Unmarshal([]byte(`{"question":"How many?","options":{"A":2,"B":"three","C":true,"D":null},"correct_answer":"A"}`), &q))
	assert.Equal(t, OptionSet{"A": "2", "B": "three", "C": "true"}, q.Options)
	assert.Equal(t, "Not Provided", q.OptionOrDefault("D"))

	var empty QuestionSpec
	require.NoError(t, json.Unmarshal([]byte(`{"options":null}`), &empty))
	assert.Nil(t, empty.Options)

	assert.Error(t, json.Unmarshal([]byte(`{"options":"A or B"}`), &empty))
}

func TestEvaluationParams_Validate(t *testing.T) {
	p := EvaluationParams{DatasetPath: "d.json", FrameOutputDir: "tmp", ReportPath: "r.json", TargetFPS: 1, MaxFrames: 25}
	require.NoError(t, p.Validate())

	bad := p
	bad.TargetFPS = 0
	assert.Error(t, bad.Validate())

	bad = p
	bad.MaxFrames = 0
	assert.Error(t, bad.Validate())
}

func TestNullStringFromError(t *testing.T) {
	assert.False(t, NullStringFromError(nil).Valid)

	ns := NullStringFromError(errors.New("boom"))
	assert.True(t, ns.Valid)
	data, err := json.Marshal(ns)
	require.NoError(t, err)
	assert.Equal(t, `"boom"`, string(data))
}

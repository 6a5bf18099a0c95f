package network

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// StyleLossWeight scales the style classification loss of NotesAndStyleHead.
const StyleLossWeight = 0.5

// primaryLoss is the mean binary cross entropy between sigmoid(logits) and
// target over every (batch, time, note, channel). It is computed from the
// logits as softplus(z) - z*t, which stays finite where log(sigmoid(z))
// would underflow.
func primaryLoss(logits, target *G.Node) (*G.Node, error) {
	sp, err := G.Softplus(logits)
	if err != nil {
		return nil, errors.Wrap(err, "primary loss: softplus")
	}
	zt, err := G.HadamardProd(logits, target)
	if err != nil {
		return nil, errors.Wrap(err, "primary loss: z*t")
	}
	xent, err := G.Sub(sp, zt)
	if err != nil {
		return nil, errors.Wrap(err, "primary loss")
	}
	if xent, err = G.Reshape(xent, tensor.Shape{xent.Shape().TotalSize()}); err != nil {
		return nil, errors.Wrap(err, "primary loss: flatten")
	}
	cost, err := G.Mean(xent)
	return cost, errors.Wrap(err, "primary loss: mean")
}

// styleLoss is StyleLossWeight times the mean categorical cross entropy of
// softmax(logits) against labels, both (rows, styles). For labels that sum
// to one per row this is logsumexp(z) - sum(t*z).
func styleLoss(g *G.ExprGraph, logits, labels *G.Node) (*G.Node, error) {
	rows, styles := logits.Shape()[0], logits.Shape()[1]

	// row sums as a product with a ones column
	ones := G.NewMatrix(g, tensor.Float32, G.WithShape(styles, 1), G.WithName("style_loss_ones"),
		G.WithValue(tensor.New(tensor.WithShape(styles, 1), tensor.WithBacking(onesOf(styles)))))
	rowSum := func(x *G.Node) (*G.Node, error) {
		s, err := G.Mul(x, ones)
		if err != nil {
			return nil, err
		}
		return G.Reshape(s, tensor.Shape{rows})
	}

	exp, err := G.Exp(logits)
	if err != nil {
		return nil, errors.Wrap(err, "style loss: exp")
	}
	total, err := rowSum(exp)
	if err != nil {
		return nil, errors.Wrap(err, "style loss: sum")
	}
	lse, err := G.Log(total)
	if err != nil {
		return nil, errors.Wrap(err, "style loss: log")
	}
	tz, err := G.HadamardProd(labels, logits)
	if err != nil {
		return nil, errors.Wrap(err, "style loss: t*z")
	}
	picked, err := rowSum(tz)
	if err != nil {
		return nil, errors.Wrap(err, "style loss: pick")
	}
	xent, err := G.Sub(lse, picked)
	if err != nil {
		return nil, errors.Wrap(err, "style loss")
	}
	mean, err := G.Mean(xent)
	if err != nil {
		return nil, errors.Wrap(err, "style loss: mean")
	}

	weight := G.NewScalar(g, tensor.Float32, G.WithName("style_loss_weight"), G.WithValue(float32(StyleLossWeight)))
	cost, err := G.Mul(weight, mean)
	return cost, errors.Wrap(err, "style loss: weight")
}

func onesOf(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

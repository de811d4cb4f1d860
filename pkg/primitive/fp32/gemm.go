package fp32

// VecMatCM computes dst = v * M where v is a row vector of length K and M is a
// K × N matrix stored column-major (ldM ≥ K). dst has length N.
// This is the GEMM form used by im2col convolution: one flattened kernel times
// the packed window matrix yields one output channel.
func VecMatCM(dst, v, m []float32, ldM, K, N int) {
	if K == 0 || N == 0 {
		return
	}
	pm := 0
	for j := 0; j < N; j++ {
		col := m[pm : pm+K]
		var sum float32
		for k := 0; k < K; k++ {
			sum += v[k] * col[k]
		}
		dst[j] = sum
		pm += ldM
	}
}

// GemmCM computes C = A * B for column-major matrices.
// A: M × K (ldA ≥ M), B: K × N (ldB ≥ K), C: M × N (ldC ≥ M).
// C is overwritten.
func GemmCM(c, a, b []float32, ldC, ldA, ldB, M, N, K int) {
	if M == 0 || N == 0 || K == 0 {
		return
	}
	for j := 0; j < N; j++ {
		cc := c[j*ldC : j*ldC+M]
		for i := range cc {
			cc[i] = 0
		}
		bc := b[j*ldB : j*ldB+K]
		for k := 0; k < K; k++ {
			bkj := bc[k]
			if bkj == 0 {
				continue
			}
			ac := a[k*ldA : k*ldA+M]
			for i := 0; i < M; i++ {
				cc[i] += ac[i] * bkj
			}
		}
	}
}

// Transpose writes the transpose of src into dst.
// src is rows × cols row-major; dst becomes cols × rows row-major,
// which is the same bytes as rows × cols column-major.
func Transpose(dst, src []float32, rows, cols int) {
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			dst[c*rows+r] = src[r*cols+c]
		}
	}
}

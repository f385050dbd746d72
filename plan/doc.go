package plan

// The following documentation is used to describe how an algebra tree is
// turned into an evaluation plan.
//
// The optimizer runs a list of rules, each one producing a new tree out of the
// previous one, the input tree is never touched:
//
// 1) Predicate placement
//    Sinks every selection to the lowest node whose subtree still reaches all
//    the tables its condition mentions. The builder already wraps single table
//    conditions over their relation, so in practice this moves the multi table
//    ones from the top of the join chain down to the first join that has both
//    of their tables.
//
// 2) Early selection
//    A check only. Counts the single table selections that sit between their
//    relation and the first join above it, and reports any one that does not.
//
// 3) Projection push-down
//    Starting with the root projection's attributes, a required set flows down
//    the tree. Selections and joins add the columns of their conditions, joins
//    split the set by side. Each relation ends up right under a projection of
//    exactly the columns needed anywhere above it, sorted by name.
//
// Every rule line goes to the trace. When the resulting tree has the same
// fingerprint as the input, the trace is replaced by a single NoRewrite line,
// this is what makes optimizing an optimized tree a visible no-op.
//
// The plan is a post order walk of the optimized tree, one line per node:
//
//    Access base table: Cliente
//    Filter: Cliente.Nome = 'Ana'
//    Access base table: Pedido
//    Join: Cliente.idCliente = Pedido.Cliente_idCliente
//    Projection: Cliente.Nome, Pedido.ValorTotalPedido
//
// so every operator shows up after all the steps producing its input.
